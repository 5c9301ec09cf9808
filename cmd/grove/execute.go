// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/internal/runtime"
	"github.com/grovecli/grove/pkg/grovefile"
)

// executeTask runs one manifest command through the full lifecycle:
// manifest load, argument binding, runtime execution, and diagnostic
// rendering on failure. positionals and flagValues come from the cobra
// layer; flagValues is nil on the fallback path, where only positional
// binding is possible.
func executeTask(cmd *cobra.Command, path string, positionals []string, flagValues map[string]string) error {
	stderr := cmd.ErrOrStderr()

	man, err := loadManifestForRun()
	if err != nil {
		renderManifestError(stderr, err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	target, err := man.Lookup(path)
	if err != nil {
		renderCommandNotFound(stderr, man, path)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	args, err := bindInvocation(target.Params, positionals, flagValues, evaluatorFor(target))
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
		fmt.Fprintln(stderr, renderHintStyle.Render(fmt.Sprintf("Run 'grove run %s --help' for the signature.", path)))
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	if watchMode && dryRun {
		return fmt.Errorf("--watch and --dry-run cannot be used together")
	}

	cfg := currentConfig()
	rt := runtime.New(man, runtime.Options{
		DryRun:    dryRun,
		Verbose:   verbose,
		AssumeYes: assumeYes || cfg.AssumeYes,
		Shell:     cfg.Shell.String(),
	})

	if watchMode {
		return runWatchMode(cmd, rt, target, path, args)
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Running '%s'...\n", SuccessStyle.Render("→"), path)
	}
	if execErr := rt.Execute(cmd.Context(), path, args); execErr != nil {
		renderExecutionError(stderr, execErr)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: runtime.ExitCodeFor(execErr), Err: execErr}
	}
	return nil
}

// evaluatorFor builds the evaluator argument defaults render through:
// the command's shell directive (nearest ancestor wins), falling back
// to the configured default shell. This mirrors the shell the runtime
// itself selects for the command.
func evaluatorFor(target *grovefile.Command) grovefile.Evaluator {
	name := ""
	for c := target; c != nil && name == ""; c = c.Parent() {
		name = grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS()).Shell()
	}
	if name == "" {
		name = currentConfig().Shell.String()
	}
	return runtime.Evaluator(runtime.ShellFor(name, runtime.NewSystemShell()))
}
