// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/grovecli/grove/internal/include"
	"github.com/grovecli/grove/internal/issue"
	"github.com/grovecli/grove/internal/runtime"
	"github.com/grovecli/grove/pkg/grovefile"
)

// scriptPreviewLines caps how much of a failing script the diagnostic
// card shows.
const scriptPreviewLines = 8

// renderIssue writes one issue catalog entry, rendered for the
// configured color scheme. Rendering failures are logged, never fatal.
func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(colorScheme())
	if err != nil {
		log.Warn("failed to render issue catalog entry", "issue", id, "err", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// renderManifestError writes the diagnostics for a manifest that could
// not be located, flattened, or parsed.
func renderManifestError(w io.Writer, err error) {
	switch {
	case errors.Is(err, ErrNoManifest):
		renderIssue(w, issue.ManifestNotFoundId)
	case errors.Is(err, include.ErrIncludeCycle):
		fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
		renderIssue(w, issue.IncludeCycleId)
	default:
		var pe *grovefile.ParseError
		if errors.As(err, &pe) {
			fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
			renderIssue(w, issue.ManifestParseErrorId)
			return
		}
		fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	}
}

// renderCommandNotFound writes the unknown-path diagnostics with fuzzy
// "did you mean" suggestions over the runnable paths.
func renderCommandNotFound(w io.Writer, man *grovefile.Manifest, path string) {
	var sb strings.Builder
	sb.WriteString(renderHeaderStyle.Render("✗ Command not found!"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("No command named %s is defined in the grovefile.\n",
		renderCommandStyle.Render("'"+path+"'")))

	if suggestions := closestPaths(man, path, 3); len(suggestions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(renderLabelStyle.Render("Did you mean:"))
		sb.WriteString("\n")
		for _, s := range suggestions {
			sb.WriteString(renderValueStyle.Render(fmt.Sprintf("  • %s\n", s)))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(renderHintStyle.Render("Run 'grove list' to see every available command."))
	sb.WriteString("\n")
	fmt.Fprintln(w, sb.String())
	renderIssue(w, issue.CommandNotFoundId)
}

// closestPaths returns up to limit runnable paths ranked by fuzzy
// distance to the requested one.
func closestPaths(man *grovefile.Manifest, path string, limit int) []string {
	var candidates []string
	man.Walk(func(c *grovefile.Command) {
		if c.Runnable() {
			candidates = append(candidates, c.Path())
		}
	})
	ranks := fuzzy.RankFindFold(path, candidates)
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == limit {
			break
		}
	}
	return out
}

// renderExecutionError writes the boxed diagnostic card for a runtime
// failure, followed by the matching issue catalog entry.
func renderExecutionError(w io.Writer, err error) {
	var se *runtime.ScriptError
	if errors.As(err, &se) {
		fmt.Fprintln(w, renderScriptError(se))
	} else {
		fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	}
	renderIssue(w, classifyExecutionError(err))
}

// classifyExecutionError maps a runtime failure to its issue catalog
// entry. Aggregated dependency failures classify through their inner
// errors.
func classifyExecutionError(err error) issue.Id {
	switch {
	case errors.Is(err, runtime.ErrCycle):
		return issue.DependencyCycleId
	case errors.Is(err, runtime.ErrValidation):
		return issue.ValidationFailedId
	case errors.Is(err, runtime.ErrPrivilege):
		return issue.PrivilegeRequiredId
	case errors.Is(err, exec.ErrNotFound):
		return issue.ShellNotFoundId
	case errors.Is(err, fs.ErrNotExist) && strings.Contains(err.Error(), "env file"):
		return issue.EnvFileMissingId
	default:
		return issue.ScriptFailedId
	}
}

// renderScriptError builds the boxed card for a failed script: path,
// resolved arguments, working directory, exit code, and a preview of
// the script text, plus a command-not-found hint when the exit status
// says so.
func renderScriptError(se *runtime.ScriptError) string {
	var sb strings.Builder

	header := "✗ Script failed!"
	if se.Hook != "" {
		header = fmt.Sprintf("✗ %s hook failed!", se.Hook)
	}
	sb.WriteString(renderHeaderStyle.Render(header))
	sb.WriteString("\n\n")

	sb.WriteString(renderLabelStyle.Render("Command:"))
	sb.WriteString(" " + renderCommandStyle.Render(se.Path) + "\n")

	if len(se.Args) > 0 {
		keys := make([]string, 0, len(se.Args))
		for k := range se.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + se.Args[k]
		}
		sb.WriteString(renderLabelStyle.Render("Args:"))
		sb.WriteString(" " + renderValueStyle.Render(strings.Join(pairs, ", ")) + "\n")
	}
	if se.Cwd != "" {
		sb.WriteString(renderLabelStyle.Render("Cwd:"))
		sb.WriteString(" " + renderValueStyle.Render(se.Cwd) + "\n")
	}
	if se.Err != nil {
		sb.WriteString(renderLabelStyle.Render("Cause:"))
		sb.WriteString(" " + renderValueStyle.Render(se.Err.Error()) + "\n")
	} else {
		sb.WriteString(renderLabelStyle.Render("Exit code:"))
		sb.WriteString(" " + renderValueStyle.Render(fmt.Sprintf("%d", int(se.Code))) + "\n")
	}

	if se.Script != "" {
		sb.WriteString(renderLabelStyle.Render("Script:"))
		sb.WriteString("\n")
		lines := strings.Split(strings.TrimRight(se.Script, "\n"), "\n")
		for i, line := range lines {
			if i == scriptPreviewLines {
				sb.WriteString(renderValueStyle.Render(fmt.Sprintf("  ... (%d more lines)", len(lines)-i)))
				sb.WriteString("\n")
				break
			}
			sb.WriteString(renderValueStyle.Render("  " + line))
			sb.WriteString("\n")
		}
	}

	if se.NotFound() {
		sb.WriteString("\n")
		sb.WriteString(renderHintStyle.Render("Exit 127 usually means a program in the script is not installed or not on PATH."))
	}

	return renderBoxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
