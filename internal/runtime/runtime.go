// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/grovecli/grove/internal/template"
	"github.com/grovecli/grove/pkg/grovefile"
)

// errorCodeName is the injected fallback argument carrying the failing
// exit code, next to template.ErrorMessageName for the message.
const errorCodeName = "SYSTEM_ERROR_CODE"

// inheritableHooks are the lifecycle hooks a command inherits from the
// closest ancestor that declares them.
var inheritableHooks = []grovefile.DirectiveKey{
	grovefile.DirBefore,
	grovefile.DirAfter,
	grovefile.DirFallback,
	grovefile.DirFinally,
}

type (
	// Options configures a Runtime.
	Options struct {
		// DryRun previews instead of executing.
		DryRun bool
		// Verbose prints a preview before executing.
		Verbose bool
		// AssumeYes accepts every confirmation gate without prompting.
		AssumeYes bool
		// OS overrides platform detection for directive scoring.
		OS string
		// Shell names the default shell program. "builtin" selects the
		// embedded interpreter, "" platform discovery.
		Shell string
		// Stdout, Stderr, and Stdin default to the process streams.
		Stdout io.Writer
		Stderr io.Writer
		Stdin  io.Reader
		// Environ supplies the host environment; nil means os.Environ.
		Environ func() []string
	}

	// Runtime executes the commands of one merged manifest.
	Runtime struct {
		man  *grovefile.Manifest
		opts Options
		os   string
		sh   Shell
	}

	// execution is the state of one command invocation moving through
	// the lifecycle.
	execution struct {
		rt         *Runtime
		ctx        context.Context
		cmd        *grovefile.Command
		path       string
		args       map[string]string
		parentArgs map[string]string
		guard      *guard

		chain  []*grovefile.Command
		res    *grovefile.Resolver
		hooks  map[grovefile.DirectiveKey]grovefile.Hook
		cwdRaw string
		sh     Shell
		eval   grovefile.Evaluator
		scope  *template.Scope
		env    *execEnv
		cwd    string

		fnDepth int
		// phase names the running lifecycle hook for error attribution.
		phase string
		// hide suppresses stream output while a hidden hook runs.
		hide bool
	}
)

// New creates a Runtime over a merged manifest.
func New(man *grovefile.Manifest, opts Options) *Runtime {
	rt := &Runtime{man: man, opts: opts, os: opts.OS}
	if rt.os == "" {
		rt.os = grovefile.CurrentOS()
	}
	rt.sh = ShellFor(opts.Shell, NewSystemShell())
	return rt
}

// Manifest returns the manifest the runtime executes.
func (rt *Runtime) Manifest() *grovefile.Manifest { return rt.man }

func (rt *Runtime) stdout() io.Writer {
	if rt.opts.Stdout != nil {
		return rt.opts.Stdout
	}
	return os.Stdout
}

func (rt *Runtime) stderr() io.Writer {
	if rt.opts.Stderr != nil {
		return rt.opts.Stderr
	}
	return os.Stderr
}

func (rt *Runtime) stdin() io.Reader {
	if rt.opts.Stdin != nil {
		return rt.opts.Stdin
	}
	return os.Stdin
}

func (rt *Runtime) environ() []string {
	if rt.opts.Environ != nil {
		return rt.opts.Environ()
	}
	return hostEnviron()
}

func (rt *Runtime) manifestDir() string {
	if rt.man.Path == "" {
		return ""
	}
	return filepath.Dir(rt.man.Path)
}

// Execute runs the command at path through the full lifecycle.
func (rt *Runtime) Execute(ctx context.Context, path string, args map[string]string) error {
	return rt.ExecuteWithParentArgs(ctx, path, args, nil)
}

// ExecuteWithParentArgs runs the command at path with an additional
// parent argument layer, the way nested calls invoke their targets.
func (rt *Runtime) ExecuteWithParentArgs(ctx context.Context, path string, args, parentArgs map[string]string) error {
	cmd, err := rt.man.Lookup(strings.TrimPrefix(path, grovefile.PathSeparator))
	if err != nil {
		return err
	}
	g := newGuard(environMap(rt.environ())[CallStackVar])
	return rt.run(ctx, cmd, args, parentArgs, g)
}

// run drives one invocation through the lifecycle: cycle check,
// validation, dependencies, confirmation gate, environment assembly,
// then the hook state machine.
func (rt *Runtime) run(ctx context.Context, cmd *grovefile.Command, args, parentArgs map[string]string, g *guard) error {
	x := &execution{
		rt:         rt,
		ctx:        ctx,
		cmd:        cmd,
		path:       cmd.Path(),
		args:       args,
		parentArgs: parentArgs,
	}

	if err := g.check(x.path); err != nil {
		return err
	}
	x.guard = g.push(x.path)

	x.prepare()

	if err := x.validate(); err != nil {
		return err
	}

	if err := x.runDependencies(); err != nil {
		return err
	}

	if msg, ok := x.res.RequireConfirm(); ok && !rt.opts.DryRun && !rt.opts.AssumeYes {
		accepted, err := x.confirm(msg)
		if err != nil {
			return err
		}
		if !accepted {
			// A decline is a clean no-op, not a failure.
			return nil
		}
	}

	if err := x.assembleEnv(); err != nil {
		return err
	}

	return x.runBody()
}

// prepare resolves the statically derivable parts of the invocation:
// ancestor chain, directive resolver, inherited hooks, cwd, shell, and
// the template scope.
func (x *execution) prepare() {
	x.chain = chainFor(x.rt.man, x.path)
	if x.chain == nil {
		x.chain = []*grovefile.Command{x.cmd}
	}
	x.res = grovefile.NewResolverForOS(x.cmd.Directives, x.rt.os)

	x.hooks = make(map[grovefile.DirectiveKey]grovefile.Hook, len(inheritableHooks))
	shellName := ""
	for i := len(x.chain) - 1; i >= 0; i-- {
		res := grovefile.NewResolverForOS(x.chain[i].Directives, x.rt.os)
		for _, key := range inheritableHooks {
			if _, done := x.hooks[key]; done {
				continue
			}
			if h, ok := res.Hook(key); ok {
				x.hooks[key] = h
			}
		}
		if x.cwdRaw == "" {
			x.cwdRaw = res.Cwd()
		}
		if shellName == "" {
			shellName = res.Shell()
		}
	}

	x.sh = ShellFor(shellName, x.rt.sh)
	x.eval = Evaluator(x.sh)
	x.buildScope()
}

// runDependencies resolves and runs the dependency list. Serial mode
// stops at the first failure; parallel mode runs every dependency to
// completion and aggregates all failures.
func (x *execution) runDependencies() error {
	deps, parallel, err := x.res.Depends()
	if err != nil {
		return fmt.Errorf("%s: %w", x.path, err)
	}
	if len(deps) == 0 {
		return nil
	}

	type resolved struct {
		target *grovefile.Command
		args   map[string]string
	}
	targets := make([]resolved, len(deps))
	for i, dep := range deps {
		target, err := x.rt.man.ResolveDependency(x.cmd, dep.Path)
		if err != nil {
			return fmt.Errorf("%s: dependency %s: %w", x.path, dep.Path, err)
		}
		args, err := x.bindCallArgs(target.Params, dep.Args)
		if err != nil {
			return fmt.Errorf("%s: dependency %s: %w", x.path, dep.Path, err)
		}
		targets[i] = resolved{target: target, args: args}
	}

	if !parallel {
		for i, t := range targets {
			if err := x.rt.run(x.ctx, t.target, t.args, nil, x.guard); err != nil {
				return fmt.Errorf("dependency %s: %w", deps[i].Path, err)
			}
		}
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, t := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := x.rt.run(x.ctx, t.target, t.args, nil, x.guard); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		return &DependencyError{Path: x.path, Errs: errs}
	}
	return nil
}

// runBody finishes the lifecycle once the environment exists: script
// resolution, dry-run preview, the hook state machine, logging, and the
// finally hook.
func (x *execution) runBody() error {
	script, ok := x.res.Hook(grovefile.DirScript)
	if !ok {
		return &MissingScriptError{Path: x.path}
	}

	if x.rt.opts.DryRun {
		x.preview(x.rt.stdout(), "would run:", maskScript(script.Value, script.Hide))
		return nil
	}

	outcome := x.runPhases(script)

	if spec, ok := x.res.Logs(); ok {
		if err := x.writeLog(spec, outcome); err != nil {
			log.Warn("logging failed", "command", x.path, "err", err)
		}
	}

	if h, ok := x.hooks[grovefile.DirFinally]; ok {
		if err := x.runHook("finally", h); err != nil {
			log.Warn("finally hook failed", "command", x.path, "err", err)
		}
	}
	return outcome
}

// runPhases runs the before hook, the main script, and the outcome
// branch: success runs the after hook, whose failure propagates; failure
// runs the fallback, whose outcome replaces the command's.
func (x *execution) runPhases(script grovefile.Hook) error {
	if h, ok := x.hooks[grovefile.DirBefore]; ok {
		if err := x.runHook("before", h); err != nil {
			return err
		}
	}

	err := x.runMain(script)
	if err == nil {
		if h, ok := x.hooks[grovefile.DirAfter]; ok {
			return x.runHook("after", h)
		}
		return nil
	}
	if h, ok := x.hooks[grovefile.DirFallback]; ok {
		return x.runFallback(h, err)
	}
	return err
}

// runMain executes the main script: privilege gate, guard conditions,
// template processing, optional verbose preview, then the classifier.
func (x *execution) runMain(script grovefile.Hook) error {
	if x.res.Privileged() {
		if err := checkPrivilege(x.path); err != nil {
			return err
		}
	}

	body, run, err := x.selectBody(script)
	if err != nil || !run {
		return err
	}

	text, err := x.processText(body)
	if err != nil {
		return fmt.Errorf("command %q: %w", x.path, err)
	}
	if x.rt.opts.Verbose {
		x.preview(x.rt.stderr(), "running:", maskScript(text, script.Hide))
	}
	return x.runScript(text, x.rt.stdout(), nil)
}

// selectBody picks the body to run. Without guards it is the main
// script. With if/elif guards the first true guard selects the main
// script, a trailing else supplies an alternate body, and no true guard
// skips the command cleanly.
func (x *execution) selectBody(script grovefile.Hook) (string, bool, error) {
	conds := x.res.Conditions()
	if len(conds) == 0 {
		return script.Value, true, nil
	}
	for _, d := range conds {
		switch d.Key {
		case grovefile.DirIf, grovefile.DirElif:
			ok, err := x.condition(d.Value)
			if err != nil {
				return "", false, err
			}
			if ok {
				return script.Value, true, nil
			}
		case grovefile.DirElse:
			return d.Value, true, nil
		}
	}
	return "", false, nil
}

// runFallback runs the fallback hook with the failure injected as
// SYSTEM_ERROR_MESSAGE and SYSTEM_ERROR_CODE, visible to templates and
// exported to the hook's environment. Its outcome becomes the command's.
func (x *execution) runFallback(h grovefile.Hook, failure error) error {
	msg := failure.Error()
	code := ExitCodeFor(failure).String()
	x.scope.SetErrorMessage(msg)
	x.scope.Set(errorCodeName, code)
	x.env.set(template.ErrorMessageName, msg, false)
	x.env.set(errorCodeName, code, false)
	return x.runHook("fallback", h)
}

// maskScript substitutes the hidden marker for hide-flagged script text.
func maskScript(text string, hide bool) string {
	if hide {
		return "(hidden)"
	}
	return text
}
