// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/internal/runtime"
	"github.com/grovecli/grove/internal/watch"
	"github.com/grovecli/grove/pkg/grovefile"
)

// runWatchMode executes the command once, then re-executes it whenever
// watched files change. Patterns come from the command's watch
// directive (nearest ancestor wins), defaulting to every file under the
// manifest directory. The loop blocks until the context is cancelled.
func runWatchMode(cmd *cobra.Command, rt *runtime.Runtime, target *grovefile.Command, path string, args map[string]string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	patterns := watchPatterns(target)
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	cfg := currentConfig()
	debounce, err := cfg.Watch.Debounce.Duration()
	if err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", cfg.Watch.Debounce, err)
	}

	// Re-execution runs the full lifecycle again; the watcher keeps
	// going whether it succeeds or fails.
	reexecute := func(ctx context.Context) {
		if execErr := rt.Execute(ctx, path, args); execErr != nil {
			renderExecutionError(stderr, execErr)
		}
	}

	fmt.Fprintf(stdout, "%s Watch mode: initial run of '%s'\n", VerboseHighlightStyle.Render("→"), path)
	reexecute(cmd.Context())
	fmt.Fprintf(stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseHighlightStyle.Render("→"))

	dir := ""
	if rt.Manifest().Path != "" {
		dir = filepath.Dir(rt.Manifest().Path)
	}

	w, err := watch.New(watch.Config{
		Dir:      dir,
		Patterns: patterns,
		Ignore:   cfg.Watch.Ignore,
		Debounce: debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(stdout, "%s Detected %d change(s). Re-running '%s'...\n",
				VerboseHighlightStyle.Render("→"), len(changed), path)
			reexecute(ctx)
			fmt.Fprintf(stdout, "\n%s Watching for changes...\n\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
		Stdout: stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Run(cmd.Context())
}

// watchPatterns returns the watch directive patterns of the command or
// its nearest ancestor declaring any.
func watchPatterns(target *grovefile.Command) []string {
	for c := target; c != nil; c = c.Parent() {
		if pats := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS()).Watch(); len(pats) > 0 {
			return pats
		}
	}
	return nil
}
