// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/pkg/grovefile"
)

var (
	initForce    bool
	initTemplate string

	// initCmd creates a new grovefile
	initCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Create a new grovefile in the current directory",
		Long: `Create a new grovefile in the current directory with example commands.

This command generates a starter grovefile with sample commands to help
you get started quickly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing grovefile")
	initCmd.Flags().StringVarP(&initTemplate, "template", "t", "default", "template to use (default, minimal, full)")
}

func runInit(cmd *cobra.Command, args []string) error {
	filename := grovefile.ManifestName
	if len(args) > 0 {
		filename = args[0]
	}

	if _, err := os.Stat(filename); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", filename)
	}

	content := generateGrovefile(initTemplate)

	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Println("  1. Edit the grovefile to add your commands")
	fmt.Println("  2. Run 'grove list' to see available commands")
	fmt.Println("  3. Run 'grove run <command>' to execute a command")

	return nil
}

// generateGrovefile builds the starter manifest for a template name and
// renders it through the canonical serializer, so the scaffold always
// parses with the current grammar.
func generateGrovefile(template string) string {
	man := &grovefile.Manifest{}

	switch template {
	case "minimal":
		hello := &grovefile.Command{
			Name: "hello",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Print a greeting"},
				{Key: grovefile.DirScript, Value: "echo 'Hello from grove!'"},
			},
		}
		man.Commands = []*grovefile.Command{hello}

	case "full":
		man.Consts = []grovefile.Assignment{
			{Name: "project", Value: grovefile.StringValue("myproject"), Const: true},
		}
		man.Vars = []grovefile.Assignment{
			{Name: "rev", Value: grovefile.DynamicValue("git rev-parse --short HEAD 2>/dev/null || echo dev")},
		}
		man.Env = []grovefile.Directive{
			{Key: grovefile.DirEnv, EnvName: "CGO_ENABLED", Value: "0"},
		}

		targetDefault := grovefile.StringValue("all")
		releaseDefault := grovefile.BoolValue(false)
		build := &grovefile.Command{
			Name: "build",
			Params: []grovefile.Parameter{
				{Name: "target", Type: grovefile.ParamString, Default: &targetDefault},
				{Name: "release", Alias: "r", Type: grovefile.ParamBool, Named: true, Default: &releaseDefault},
			},
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Build the project"},
				{Key: grovefile.DirScript, Value: "echo \"Building {{target}} of {{project}} ({{rev}})\"\n# Add your build steps here"},
			},
		}

		test := &grovefile.Command{
			Name: "test",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Run every test suite"},
				{Key: grovefile.DirDepends, Value: "test:unit, test:integration", Parallel: true},
			},
		}
		test.AddChild(&grovefile.Command{
			Name: "unit",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Run unit tests"},
				{Key: grovefile.DirScript, Value: "echo 'Unit tests...'"},
			},
		})
		test.AddChild(&grovefile.Command{
			Name: "integration",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Run integration tests"},
				{Key: grovefile.DirScript, Value: "echo 'Integration tests...'"},
			},
		})

		deploy := &grovefile.Command{
			Name: "deploy",
			Params: []grovefile.Parameter{
				{Name: "env", Type: grovefile.ParamString},
			},
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Deploy the project"},
				{Key: grovefile.DirValidate, Value: "env in [staging, production]"},
				{Key: grovefile.DirRequireConfirm, Value: "Deploy {{project}} to {{env}}?"},
				{Key: grovefile.DirDepends, Value: "build"},
				{Key: grovefile.DirScript, Value: "echo \"Deploying {{project}} to {{env}}\""},
			},
		}

		dev := &grovefile.Command{
			Name: "dev",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Rebuild whenever a source file changes"},
				{Key: grovefile.DirWatch, Value: `["src/**/*"]`},
				{Key: grovefile.DirScript, Value: "echo 'Rebuilding...'"},
			},
		}

		clean := &grovefile.Command{
			Name: "clean",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Clean build artifacts"},
				{Key: grovefile.DirScript, Value: "rm -rf bin/ dist/", OS: grovefile.OSFamilyUnix},
				{Key: grovefile.DirScript, Value: "if exist bin rmdir /s /q bin", OS: grovefile.OSWindows},
			},
		}

		man.Commands = []*grovefile.Command{build, test, deploy, dev, clean}

	default: // "default"
		build := &grovefile.Command{
			Name: "build",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Build the project"},
				{Key: grovefile.DirScript, Value: "echo 'Building...'\n# Add your build commands here"},
			},
		}
		test := &grovefile.Command{
			Name: "test",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Run tests"},
				{Key: grovefile.DirScript, Value: "echo 'Testing...'\n# Add your test commands here"},
			},
		}
		clean := &grovefile.Command{
			Name: "clean",
			Directives: []grovefile.Directive{
				{Key: grovefile.DirDesc, Value: "Clean build artifacts"},
				{Key: grovefile.DirScript, Value: "echo 'Cleaning...'\n# Add your clean commands here"},
			},
		}
		man.Commands = []*grovefile.Command{build, test, clean}
	}

	return man.Serialize()
}
