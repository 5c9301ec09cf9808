// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/internal/config"
	"github.com/grovecli/grove/internal/issue"
)

// configCmd is the `grove config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage grove configuration",
	Long: `Manage grove configuration.

Configuration is stored in:
  - Linux: ~/.config/grove/config.cue
  - macOS: ~/Library/Application Support/grove/config.cue
  - Windows: %APPDATA%\grove\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewProvider().Load(cmd.Context(), config.LoadOptions{})
			if err != nil {
				return err
			}
			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

func showConfig(ctx context.Context) error {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{})
	if err != nil {
		renderIssue(os.Stderr, issue.ConfigLoadFailedId)
		return err
	}

	// Style definitions using shared color palette
	headerStyle := TitleStyle
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(headerStyle.Render("Current Configuration"))
	fmt.Println()

	cfgDir, dirErr := config.ConfigDir()
	if dirErr == nil && fileExistsCheck(filepath.Join(cfgDir, "config.cue")) {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), filepath.Join(cfgDir, "config.cue"))
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	if cfg.Shell == "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("shell"), SubtitleStyle.Render("(platform default)"))
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("shell"), valueStyle.Render(cfg.Shell.String()))
	}
	fmt.Printf("%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))
	fmt.Printf("%s: %s\n", keyStyle.Render("assume_yes"), valueStyle.Render(fmt.Sprintf("%v", cfg.AssumeYes)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("watch"))
	if cfg.Watch.Debounce == "" {
		fmt.Printf("  debounce: %s\n", SubtitleStyle.Render("(built-in default)"))
	} else {
		fmt.Printf("  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	}
	if len(cfg.Watch.Ignore) == 0 {
		fmt.Printf("  ignore: %s\n", SubtitleStyle.Render("(built-ins only)"))
	} else {
		fmt.Println("  ignore:")
		for _, pattern := range cfg.Watch.Ignore {
			fmt.Printf("    - %s\n", valueStyle.Render(pattern))
		}
	}

	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err := config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), filepath.Join(cfgDir, "config.cue"))
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, "config.cue"))
	return nil
}

func setConfigValue(ctx context.Context, key, value string) error {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{})
	if err != nil {
		return err
	}

	truthy := value == "true" || value == "1"

	switch key {
	case "shell":
		cfg.Shell = config.ShellName(value)
		if valid, errs := cfg.Shell.IsValid(); !valid {
			return errs[0]
		}

	case "log_level":
		cfg.LogLevel = config.LogLevel(value)
		if valid, errs := cfg.LogLevel.IsValid(); !valid {
			return errs[0]
		}

	case "assume_yes":
		cfg.AssumeYes = truthy

	case "ui.color_scheme":
		cfg.UI.ColorScheme = config.ColorScheme(value)
		if valid, errs := cfg.UI.ColorScheme.IsValid(); !valid {
			return errs[0]
		}

	case "ui.verbose":
		cfg.UI.Verbose = truthy

	case "watch.debounce":
		cfg.Watch.Debounce = config.DebounceInterval(value)
		if valid, errs := cfg.Watch.Debounce.IsValid(); !valid {
			return errs[0]
		}

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: shell, log_level, assume_yes, ui.color_scheme, ui.verbose, watch.debounce", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
