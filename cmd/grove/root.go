// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/grovecli/grove/internal/config"
	"github.com/grovecli/grove/internal/issue"
	"github.com/grovecli/grove/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// manifestFile overrides the grovefile lookup with an explicit path
	manifestFile string

	// loadedCfg is the tool configuration resolved by initRootConfig.
	// Commands read it through currentConfig, which falls back to the
	// built-in defaults when loading failed.
	loadedCfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "grove",
		Short: "A declarative task runner",
		Long: TitleStyle.Render("grove") + SubtitleStyle.Render(" - A declarative task runner") + `

grove runs the commands defined in a grovefile: a plain-text manifest
describing a tree of named commands with typed parameters, dependencies,
lifecycle hooks, and per-OS variants.

Nested command paths join with ':' (for example test:unit). Invoking a
command resolves its dependency graph, assembles a layered environment,
and runs its script through the selected shell.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a grovefile in your project directory
  2. Define commands with headers like 'build():'
  3. Run them with: grove run <path>

` + SubtitleStyle.Render("Examples:") + `
  grove list                List every available command
  grove run build           Run the 'build' command
  grove run test:unit       Run the nested 'test:unit' command
  grove run deploy --env=prod
  grove init                Create a starter grovefile
  grove config show         Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/grove/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&manifestFile, "file", "f", "", "grovefile to load (default searches upward from the current directory)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig loads the tool configuration and applies it to the
// process-wide defaults: verbosity and log level.
func initRootConfig() {
	opts := config.LoadOptions{}
	if cfgFile != "" {
		opts.ConfigFilePath = types.FilesystemPath(cfgFile)
	}

	cfg, err := config.NewProvider().Load(context.Background(), opts)
	if err != nil {
		// Always surface config loading errors; the run continues on defaults.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loadedCfg = cfg

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}

	applyLogLevel(cfg.LogLevel)
}

// applyLogLevel maps the configured log level onto the process-wide
// logger. Verbose mode always wins with debug.
func applyLogLevel(level config.LogLevel) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	switch level {
	case config.LogLevelDebug:
		log.SetLevel(log.DebugLevel)
	case config.LogLevelWarn:
		log.SetLevel(log.WarnLevel)
	case config.LogLevelError:
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// currentConfig returns the loaded tool configuration, or the defaults
// when called before initRootConfig has run (as in tests).
func currentConfig() *config.Config {
	if loadedCfg == nil {
		return config.DefaultConfig()
	}
	return loadedCfg
}

// colorScheme returns the glamour style name for issue catalog rendering.
func colorScheme() string {
	switch currentConfig().UI.ColorScheme {
	case config.ColorSchemeLight:
		return "light"
	default:
		return "dark"
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
