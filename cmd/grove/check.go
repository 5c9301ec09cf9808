// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"

	"github.com/grovecli/grove/internal/dag"
	"github.com/grovecli/grove/pkg/grovefile"
)

var checkScripts bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the grovefile for errors",
	Long: `Check the grovefile without running anything.

The check parses the manifest, verifies that every dependency target
exists and that the dependency graph has no cycles, compiles validate
rules, and reports advisory warnings for structural oddities such as
hooks without a script.

With --scripts, every script body and lifecycle hook is additionally
parsed for shell syntax errors.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkScripts, "scripts", false, "additionally parse script bodies for shell syntax errors")
}

// Style definitions for check output
var (
	checkSuccessIcon = SuccessStyle.Render("✓")
	checkErrorIcon   = ErrorStyle.Render("✗")
	checkWarnIcon    = WarningStyle.Render("!")
	checkInfoIcon    = SubtitleStyle.Render("•")

	checkTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	checkPathStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	checkTagStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)
)

// checkWarning is one advisory finding. Warnings do not fail the check.
type checkWarning struct {
	Tag     string
	Message string
}

func runCheck(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	fmt.Fprintln(stdout, checkTitleStyle.Render("Grovefile Check"))

	path, err := locateManifest()
	if err != nil {
		renderManifestError(stderr, err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Fprintf(stdout, "%s Path: %s\n", checkInfoIcon, checkPathStyle.Render(path))
	fmt.Fprintln(stdout)

	man, err := loadManifest()
	if err != nil {
		fmt.Fprintf(stderr, "%s Parse failed\n", checkErrorIcon)
		fmt.Fprintln(stderr)
		fmt.Fprintf(stderr, "  %s\n", err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	total, runnable := 0, 0
	man.Walk(func(c *grovefile.Command) {
		total++
		if c.Runnable() {
			runnable++
		}
	})
	fmt.Fprintf(stdout, "%s Parse passed (%d command(s), %d runnable)\n", checkSuccessIcon, total, runnable)

	issueCount := 0

	// Dependency graph: unresolvable targets fail the build, cycles fail
	// the sort.
	if g, depErr := dag.FromManifest(man, grovefile.CurrentOS()); depErr != nil {
		fmt.Fprintf(stderr, "%s Dependency check failed\n", checkErrorIcon)
		fmt.Fprintf(stderr, "  %s\n", depErr)
		issueCount++
	} else if order, sortErr := g.TopologicalSort(); sortErr != nil {
		fmt.Fprintf(stderr, "%s Dependency check failed\n", checkErrorIcon)
		fmt.Fprintf(stderr, "  %s\n", sortErr)
		issueCount++
	} else {
		fmt.Fprintf(stdout, "%s Dependency graph is acyclic (%d node(s))\n", checkSuccessIcon, len(order))
	}

	// Validate rules: malformed rules and bad patterns would only fail at
	// run time, so compile them all here.
	ruleIssues := checkValidateRules(man)
	if len(ruleIssues) > 0 {
		fmt.Fprintf(stderr, "%s Validate rule check failed\n", checkErrorIcon)
		for _, msg := range ruleIssues {
			fmt.Fprintf(stderr, "  %s\n", msg)
		}
		issueCount += len(ruleIssues)
	} else {
		fmt.Fprintf(stdout, "%s Validate rules compile\n", checkSuccessIcon)
	}

	if checkScripts {
		scriptIssues, checked := checkScriptSyntax(man)
		if len(scriptIssues) > 0 {
			fmt.Fprintf(stderr, "%s Script syntax check failed\n", checkErrorIcon)
			for _, msg := range scriptIssues {
				fmt.Fprintf(stderr, "  %s\n", msg)
			}
			issueCount += len(scriptIssues)
		} else {
			fmt.Fprintf(stdout, "%s Script syntax check passed (%d script(s))\n", checkSuccessIcon, checked)
		}
	}

	warnings := collectWarnings(man)
	if len(warnings) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "%s %d advisory warning(s):\n", checkWarnIcon, len(warnings))
		fmt.Fprintln(stdout)
		for i, w := range warnings {
			fmt.Fprintf(stdout, "  %d. %s %s\n", i+1, checkTagStyle.Render("["+w.Tag+"]"), w.Message)
		}
	}

	fmt.Fprintln(stdout)
	if issueCount > 0 {
		fmt.Fprintf(stderr, "%s Check failed with %d issue(s)\n", checkErrorIcon, issueCount)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1}
	}
	fmt.Fprintf(stdout, "%s Grovefile is valid (%d command(s))\n", checkSuccessIcon, total)
	return nil
}

// checkValidateRules compiles every validate directive in the manifest.
func checkValidateRules(man *grovefile.Manifest) []string {
	var issues []string
	man.Walk(func(c *grovefile.Command) {
		res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())
		rules, err := res.ValidateRules()
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %s", c.Path(), err))
			return
		}
		for _, rule := range rules {
			if rule.Pattern == "" {
				continue
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				issues = append(issues, fmt.Sprintf("%s: validate %s: %s", c.Path(), rule.Target, err))
			}
		}
	})
	return issues
}

// hookKeys are the script-bearing directive keys, main script first.
var hookKeys = []grovefile.DirectiveKey{
	grovefile.DirScript,
	grovefile.DirBefore,
	grovefile.DirAfter,
	grovefile.DirFallback,
	grovefile.DirFinally,
}

// checkScriptSyntax parses every script body and lifecycle hook with a
// bash-grammar parser and returns the syntax errors found plus the
// number of scripts checked.
func checkScriptSyntax(man *grovefile.Manifest) (issues []string, checked int) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	man.Walk(func(c *grovefile.Command) {
		res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())
		for _, key := range hookKeys {
			hook, ok := res.Hook(key)
			if !ok || strings.TrimSpace(hook.Value) == "" {
				continue
			}
			checked++
			name := c.Path() + " " + string(key)
			if _, err := parser.Parse(strings.NewReader(maskTemplates(hook.Value)), name); err != nil {
				issues = append(issues, err.Error())
			}
		}
	})
	return issues, checked
}

// maskTemplates replaces {{...}} spans with a plain word. Template
// arguments may hold pipes or quotes that are not shell text.
func maskTemplates(s string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "{{")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		rest := s[i+2:]
		j := strings.Index(rest, "}}")
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString("X")
		s = rest[j+2:]
	}
}

// collectWarnings walks the tree for structural oddities that do not
// stop execution but usually indicate a mistake.
func collectWarnings(man *grovefile.Manifest) []checkWarning {
	var warnings []checkWarning
	man.Walk(func(c *grovefile.Command) {
		res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())

		if !c.HasScript() {
			for _, key := range hookKeys[1:] {
				if _, ok := res.Hook(key); ok {
					warnings = append(warnings, checkWarning{
						Tag:     "hooks",
						Message: fmt.Sprintf("'%s' declares lifecycle hooks but no script", c.Path()),
					})
					break
				}
			}
		} else if hook, _ := res.Hook(grovefile.DirScript); strings.TrimSpace(hook.Value) == "" {
			warnings = append(warnings, checkWarning{
				Tag:     "script",
				Message: fmt.Sprintf("'%s' has an empty script", c.Path()),
			})
		}

		if c.IsGroup() && !c.Runnable() && !hasRunnableDescendant(c) {
			// Only the topmost dead group warns; its subgroups add noise.
			p := c.Parent()
			if p == nil || p.Runnable() || hasRunnableDescendant(p) {
				warnings = append(warnings, checkWarning{
					Tag:     "unreachable",
					Message: fmt.Sprintf("group '%s' contains no runnable command", c.Path()),
				})
			}
		}

		deps, _, err := res.Depends()
		if err != nil {
			return
		}
		for _, dep := range deps {
			target, err := man.ResolveDependency(c, dep.Path)
			if err == nil && target == c {
				warnings = append(warnings, checkWarning{
					Tag:     "depends",
					Message: fmt.Sprintf("'%s' depends on itself", c.Path()),
				})
			}
		}
	})
	return warnings
}

// hasRunnableDescendant reports whether any command nested under c is
// runnable.
func hasRunnableDescendant(c *grovefile.Command) bool {
	for _, ch := range c.Children {
		if ch.Runnable() || hasRunnableDescendant(ch) {
			return true
		}
	}
	return false
}
