// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/pkg/grovefile"
)

var (
	// dryRun previews the invocation without executing anything.
	dryRun bool
	// assumeYes bypasses require_confirm gates.
	assumeYes bool
	// watchMode re-runs the command when watched files change.
	watchMode bool

	// runCmd executes manifest commands. Each runnable path from the
	// grovefile is registered below it as a subcommand with typed flags,
	// so help and completion reflect the actual manifest.
	runCmd = &cobra.Command{
		Use:   "run [command]",
		Short: "Run a command from the grovefile",
		Long: `Run a command defined in the grovefile.

Nested command paths join with ':' (for example test:unit). Positional
arguments bind to the command's parameters in declaration order; named
parameters are passed as flags. A trailing wildcard collects everything
left over.

Examples:
  grove run build
  grove run test:unit --coverage
  grove run deploy prod --yes
  grove run lint --watch`,
		ValidArgsFunction: completeRunPaths,
		RunE:              runFallback,
	}
)

// reservedShorthands are the single letters the run tree already owns;
// a parameter alias that collides is registered long-form only.
var reservedShorthands = map[string]bool{
	"v": true, "f": true, "y": true, "w": true, "h": true,
}

func init() {
	runCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "preview the invocation without executing")
	runCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	runCmd.PersistentFlags().BoolVarP(&watchMode, "watch", "w", false, "re-run the command when watched files change")

	// Dynamically add manifest commands.
	// This happens at init time to enable shell completion.
	registerManifestCommands()
}

// registerManifestCommands adds every runnable manifest path as a
// subcommand of run. The manifest is parsed statically, so registration
// never evaluates $(...) expressions. Failures are silent here; the
// fallback path surfaces them with full diagnostics when run executes.
func registerManifestCommands() {
	if file, ok := earlyManifestFlag(); ok {
		manifestFile = file
	}
	man, err := loadManifest()
	if err != nil {
		return
	}
	man.Walk(func(c *grovefile.Command) {
		if !c.Runnable() {
			return
		}
		runCmd.AddCommand(newTaskCommand(c))
	})
}

// earlyManifestFlag scans os.Args for --file/-f before cobra parses, so
// init-time registration reads the same manifest the invocation will.
func earlyManifestFlag() (string, bool) {
	args := os.Args
	for i := 1; i < len(args); i++ {
		switch {
		case args[i] == "--file" || args[i] == "-f":
			if i+1 < len(args) {
				return args[i+1], true
			}
		case strings.HasPrefix(args[i], "--file="):
			return strings.TrimPrefix(args[i], "--file="), true
		case strings.HasPrefix(args[i], "-f="):
			return strings.TrimPrefix(args[i], "-f="), true
		}
	}
	return "", false
}

// newTaskCommand builds the cobra command for one runnable manifest
// path: usage from the signature, typed flags from the named
// parameters, and an arity validator for the positional ones.
func newTaskCommand(c *grovefile.Command) *cobra.Command {
	path := c.Path()
	params := c.Params
	res := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS())

	taskCmd := &cobra.Command{
		Use:   buildUsageString(path, params),
		Short: res.Desc().String(),
		Long:  fmt.Sprintf("Run the '%s' command from %s", path, c.SourceFile),
		Args:  buildArgsValidator(params),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagValues, err := collectFlagValues(cmd, params)
			if err != nil {
				return err
			}
			return executeTask(cmd, path, args, flagValues)
		},
	}

	for _, p := range namedParams(params) {
		registerParamFlag(taskCmd, p)
		if p.Default == nil {
			_ = taskCmd.MarkFlagRequired(p.Name)
		}
	}
	return taskCmd
}

// registerParamFlag adds one typed cobra flag for a named parameter.
// Static defaults show in help; dynamic defaults render at bind time,
// so the flag registers with a zero default and only changed flags are
// collected.
func registerParamFlag(cmd *cobra.Command, p grovefile.Parameter) {
	alias := p.Alias
	if reservedShorthands[alias] {
		alias = ""
	}
	usage := fmt.Sprintf("set parameter %q", p.Name)

	switch p.Type {
	case grovefile.ParamBool:
		def := false
		if p.Default != nil && p.Default.Kind == grovefile.ValueBool {
			def = p.Default.Bool
		}
		cmd.Flags().BoolP(p.Name, alias, def, usage)
	case grovefile.ParamNumber:
		def := 0.0
		if p.Default != nil && p.Default.Kind == grovefile.ValueNumber {
			def = p.Default.Num
		}
		cmd.Flags().Float64P(p.Name, alias, def, usage)
	case grovefile.ParamArray:
		var def []string
		if p.Default != nil && p.Default.Kind == grovefile.ValueArray {
			def = p.Default.Arr
		}
		cmd.Flags().StringSliceP(p.Name, alias, def, usage)
	default:
		def := ""
		if p.Default != nil && p.Default.Kind == grovefile.ValueString {
			def = p.Default.Str
		}
		cmd.Flags().StringP(p.Name, alias, def, usage)
	}
}

// collectFlagValues extracts the changed flag values for the named
// parameters, reduced to their string forms: booleans as true/false,
// numbers without a trailing .0, arrays comma-joined.
func collectFlagValues(cmd *cobra.Command, params []grovefile.Parameter) (map[string]string, error) {
	values := make(map[string]string)
	for _, p := range namedParams(params) {
		if !cmd.Flags().Changed(p.Name) {
			continue
		}
		switch p.Type {
		case grovefile.ParamBool:
			v, err := cmd.Flags().GetBool(p.Name)
			if err != nil {
				return nil, err
			}
			values[p.Name] = fmt.Sprintf("%t", v)
		case grovefile.ParamNumber:
			v, err := cmd.Flags().GetFloat64(p.Name)
			if err != nil {
				return nil, err
			}
			values[p.Name] = formatNumber(v)
		case grovefile.ParamArray:
			v, err := cmd.Flags().GetStringSlice(p.Name)
			if err != nil {
				return nil, err
			}
			values[p.Name] = strings.Join(v, ",")
		default:
			v, err := cmd.Flags().GetString(p.Name)
			if err != nil {
				return nil, err
			}
			values[p.Name] = v
		}
	}
	return values, nil
}

// buildUsageString builds the cobra Use string including parameter
// placeholders: <required>, [optional], and a trailing wildcard form.
func buildUsageString(path string, params []grovefile.Parameter) string {
	parts := []string{path}
	for _, p := range params {
		switch {
		case p.IsWildcard():
			name := p.Capture
			if name == "" {
				name = "args"
			}
			if p.Count > 0 {
				parts = append(parts, fmt.Sprintf("<%s x%d>", name, p.Count))
			} else {
				parts = append(parts, fmt.Sprintf("[%s...]", name))
			}
		case p.Named:
			continue
		case p.Default != nil:
			parts = append(parts, fmt.Sprintf("[%s]", p.Name))
		default:
			parts = append(parts, fmt.Sprintf("<%s>", p.Name))
		}
	}
	return strings.Join(parts, " ")
}

// buildArgsValidator creates a cobra positional-arity validator for a
// signature: required positionals set the floor, the wildcard sets (or
// removes) the ceiling.
func buildArgsValidator(params []grovefile.Parameter) cobra.PositionalArgs {
	positional := positionalParams(params)
	wc := wildcardOf(params)

	minArgs := 0
	for _, p := range positional {
		if p.Default == nil {
			minArgs++
		}
	}
	maxArgs := len(positional)
	switch {
	case wc == nil:
	case wc.Count > 0:
		minArgs += wc.Count
		maxArgs += wc.Count
	default:
		maxArgs = -1
	}

	return func(cmd *cobra.Command, args []string) error {
		if len(args) < minArgs {
			return fmt.Errorf("requires at least %d positional argument(s), got %d", minArgs, len(args))
		}
		if maxArgs >= 0 && len(args) > maxArgs {
			return fmt.Errorf("accepts at most %d positional argument(s), got %d", maxArgs, len(args))
		}
		return nil
	}
}

// completeRunPaths provides shell completion for manifest command paths.
func completeRunPaths(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	man, err := loadManifest()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var completions []string
	man.Walk(func(c *grovefile.Command) {
		if !c.Runnable() {
			return
		}
		path := c.Path()
		if !strings.HasPrefix(path, toComplete) {
			return
		}
		if desc := grovefile.NewResolverForOS(c.Directives, grovefile.CurrentOS()).Desc(); desc != "" {
			path += "\t" + desc.String()
		}
		completions = append(completions, path)
	})
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// runFallback handles `grove run` invocations cobra did not route to a
// registered subcommand: a bare run lists what is available, a known
// path (possible when registration failed at init) binds positionally,
// and an unknown path renders the not-found diagnostics.
func runFallback(cmd *cobra.Command, args []string) error {
	man, err := loadManifest()
	if err != nil {
		renderManifestError(cmd.ErrOrStderr(), err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	if len(args) == 0 {
		printCommandSummary(cmd.OutOrStdout(), man)
		return nil
	}

	path := strings.TrimPrefix(args[0], grovefile.PathSeparator)
	if _, lookErr := man.Lookup(path); lookErr != nil {
		renderCommandNotFound(cmd.ErrOrStderr(), man, path)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: lookErr}
	}
	return executeTask(cmd, path, args[1:], nil)
}
