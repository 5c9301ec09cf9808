// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/grovecli/grove/pkg/grovefile"
	"github.com/grovecli/grove/pkg/types"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every command defined in the grovefile",
	Long: `List every command defined in the grovefile, including nested ones.

The default text format shows the command tree with descriptions. The
json and toml formats emit a machine-readable listing for scripting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		man, err := loadManifest()
		if err != nil {
			renderManifestError(cmd.ErrOrStderr(), err)
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return &ExitError{Code: 1, Err: err}
		}

		switch listFormat {
		case "", "text":
			printCommandSummary(cmd.OutOrStdout(), man)
			return nil
		case "json":
			data, err := json.MarshalIndent(buildListing(man), "", "  ")
			if err != nil {
				return fmt.Errorf("encode listing as json: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		case "toml":
			data, err := toml.Marshal(buildListing(man))
			if err != nil {
				return fmt.Errorf("encode listing as toml: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		default:
			return fmt.Errorf("unknown format %q (valid: text, json, toml)", listFormat)
		}
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "output format: text, json, or toml")
}

type (
	// manifestListing is the machine-readable form of a manifest emitted
	// by list --format json/toml.
	manifestListing struct {
		Manifest string           `json:"manifest" toml:"manifest"`
		Commands []commandListing `json:"commands" toml:"commands"`
	}

	commandListing struct {
		Name        string                `json:"name" toml:"name"`
		Path        string                `json:"path" toml:"path"`
		Description types.DescriptionText `json:"description,omitempty" toml:"description,omitempty"`
		Usage       string                `json:"usage,omitempty" toml:"usage,omitempty"`
		Runnable    bool                  `json:"runnable" toml:"runnable"`
		Source      string                `json:"source,omitempty" toml:"source,omitempty"`
		Commands    []commandListing      `json:"commands,omitempty" toml:"commands,omitempty"`
	}
)

func buildListing(man *grovefile.Manifest) manifestListing {
	var convert func(cmds []*grovefile.Command) []commandListing
	convert = func(cmds []*grovefile.Command) []commandListing {
		out := make([]commandListing, 0, len(cmds))
		for _, c := range cmds {
			res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())
			entry := commandListing{
				Name:        c.Name,
				Path:        c.Path(),
				Description: res.Desc(),
				Runnable:    c.Runnable(),
				Source:      c.SourceFile,
				Commands:    convert(c.Children),
			}
			if c.Runnable() {
				entry.Usage = buildUsageString(c.Path(), c.Params)
			}
			out = append(out, entry)
		}
		return out
	}
	return manifestListing{Manifest: man.Path, Commands: convert(man.Commands)}
}

// printCommandSummary renders the command tree the way `grove list`
// shows it. Bare `grove run` prints the same summary.
func printCommandSummary(w io.Writer, man *grovefile.Manifest) {
	// Styles derived from the shared color palette.
	groupStyle := lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(ColorVerbose)
	legendStyle := lipgloss.NewStyle().Foreground(ColorVerbose).Italic(true)
	privilegedStyle := lipgloss.NewStyle().Foreground(ColorWarning)

	if len(man.Commands) == 0 {
		fmt.Fprintf(w, "%s No commands defined in %s.\n", WarningStyle.Render("!"), man.Path)
		return
	}

	if verbose {
		fmt.Fprintln(w, TitleStyle.Render("Manifest"))
		fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("•"), VerboseStyle.Render(man.Path))
		for _, source := range includedSources(man) {
			fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("•"), VerboseStyle.Render(source))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Available Commands"))
	fmt.Fprintln(w)

	total := 0
	var print func(cmds []*grovefile.Command, depth int)
	print = func(cmds []*grovefile.Command, depth int) {
		indent := strings.Repeat("  ", depth+1)
		for _, c := range cmds {
			res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())
			var line string
			if c.Runnable() {
				total++
				line = indent + nameStyle.Render(c.Path())
			} else {
				line = indent + groupStyle.Render(c.Path()+grovefile.PathSeparator)
			}
			if desc := res.Desc(); desc != "" {
				line += " - " + descStyle.Render(desc.String())
			}
			if res.Privileged() {
				line += " " + privilegedStyle.Render("(privileged)")
			}
			fmt.Fprintln(w, line)
			print(c.Children, depth+1)
		}
	}
	print(man.Commands, 0)

	fmt.Fprintln(w)
	fmt.Fprintln(w, legendStyle.Render(fmt.Sprintf("  %d runnable command(s). Run 'grove run <command> --help' for usage.", total)))
}

// includedSources returns the distinct source files commands came from,
// excluding the manifest itself, in first-seen order.
func includedSources(man *grovefile.Manifest) []string {
	seen := map[string]bool{man.Path: true, "": true}
	var out []string
	man.Walk(func(c *grovefile.Command) {
		if !seen[c.SourceFile] {
			seen[c.SourceFile] = true
			out = append(out, c.SourceFile)
		}
	})
	return out
}
