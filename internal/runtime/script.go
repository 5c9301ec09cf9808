// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/grovecli/grove/internal/template"
	"github.com/grovecli/grove/pkg/grovefile"
)

// maxFunctionDepth caps nested function calls.
const maxFunctionDepth = 32

// functionFrame carries early-return state through one function body.
type functionFrame struct {
	returned bool
	value    string
}

// processText runs the substitution pipeline over hook or script text:
// inline function calls, placeholder lookups, then wildcard expansion.
func (x *execution) processText(text string) (string, error) {
	out, err := template.ProcessFunctionCalls(text, x.functionResolver())
	if err != nil {
		return "", err
	}
	out, err = template.Process(out, x.scope)
	if err != nil {
		return "", err
	}
	return template.ExpandWildcard(out, x.scope)
}

// functionResolver resolves {{ name(args) }} spans: the named function
// runs with captured stdout, and its return value or trimmed output
// replaces the span.
func (x *execution) functionResolver() template.FunctionResolver {
	return func(call grovefile.Call) (string, bool, error) {
		fn, ok := x.rt.man.Function(call.Path)
		if !ok {
			return "", false, nil
		}
		out, err := x.callFunction(fn, call, nil)
		if err != nil {
			return "", true, err
		}
		return out, true, nil
	}
}

// runScript interprets processed script text line by line. A resolvable
// function name runs inline, a resolvable command path recurses into the
// full lifecycle, and everything else buffers as raw shell, flushed as
// one invocation at each call boundary and at script end. frame is nil
// for command scripts; function bodies pass one to catch return lines.
func (x *execution) runScript(text string, stdout io.Writer, frame *functionFrame) error {
	var buf []string
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		script := strings.Join(buf, "\n")
		buf = buf[:0]
		if strings.TrimSpace(script) == "" {
			return nil
		}
		return x.runShell(script, stdout)
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			buf = append(buf, line)
			continue
		}
		if rest, ok := strings.CutPrefix(trimmed, "shell:"); ok {
			// Explicitly marked shell text skips classification.
			buf = append(buf, strings.TrimSpace(rest))
			continue
		}
		if frame != nil && (trimmed == "return" || strings.HasPrefix(trimmed, "return ")) {
			if err := flush(); err != nil {
				return err
			}
			frame.returned = true
			frame.value = strings.TrimSpace(strings.TrimPrefix(trimmed, "return"))
			return nil
		}
		call, isCall := grovefile.MatchCallLine(trimmed)
		if !isCall {
			buf = append(buf, line)
			continue
		}
		if !strings.Contains(call.Path, grovefile.PathSeparator) {
			if fn, ok := x.rt.man.Function(call.Path); ok {
				if err := flush(); err != nil {
					return err
				}
				if _, err := x.callFunction(fn, call, stdout); err != nil {
					return err
				}
				continue
			}
		}
		target, err := x.rt.man.ResolveDependency(x.cmd, call.Path)
		if err != nil {
			buf = append(buf, line)
			continue
		}
		if target.Path() == x.path {
			log.Warn("call resolves to the running command; treating the line as shell",
				"command", x.path, "line", trimmed)
			buf = append(buf, line)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := x.runCommandCall(target, call); err != nil {
			return err
		}
	}
	return flush()
}

// callFunction runs a function body inline. The result is the early
// return value when the body returned, otherwise the captured output
// with the trailing newline trimmed. Streaming calls pass the enclosing
// stdout and ignore the result.
func (x *execution) callFunction(fn *grovefile.Function, call grovefile.Call, stdout io.Writer) (string, error) {
	if x.fnDepth >= maxFunctionDepth {
		return "", fmt.Errorf("function %s: call depth exceeds %d", fn.Name, maxFunctionDepth)
	}
	args, err := x.bindCallArgs(fn.Params, call.Args)
	if err != nil {
		return "", fmt.Errorf("function %s: %w", fn.Name, err)
	}

	var buf *bytes.Buffer
	if stdout == nil {
		buf = new(bytes.Buffer)
		stdout = buf
	}

	layers := template.Layers{
		GlobalConsts: x.rt.man.Consts,
		GlobalVars:   x.rt.man.Vars,
		LocalVars:    fn.Vars,
		Args:         args,
		ParentArgs:   x.args,
	}
	prevScope, prevDepth := x.scope, x.fnDepth
	x.scope, x.fnDepth = template.Build(layers, x.eval), x.fnDepth+1

	var frame functionFrame
	body, err := x.processText(fn.Body)
	if err == nil {
		err = x.runScript(body, stdout, &frame)
	}
	x.scope, x.fnDepth = prevScope, prevDepth

	if err != nil {
		return "", fmt.Errorf("function %s: %w", fn.Name, err)
	}
	if frame.returned {
		return frame.value, nil
	}
	if buf != nil {
		return strings.TrimRight(buf.String(), "\n"), nil
	}
	return "", nil
}

// runCommandCall recurses into a command named by a script line. The
// caller's arguments ride along as parent arguments.
func (x *execution) runCommandCall(target *grovefile.Command, call grovefile.Call) error {
	args, err := x.bindCallArgs(target.Params, call.Args)
	if err != nil {
		return fmt.Errorf("call %s: %w", call.Path, err)
	}
	return x.rt.run(x.ctx, target, args, x.args, x.guard)
}

// bindCallArgs binds name=value call arguments against a signature,
// filling declared defaults. Array defaults comma-join, matching the
// CLI's type reduction.
func (x *execution) bindCallArgs(params []grovefile.Parameter, callArgs []grovefile.CallArg) (map[string]string, error) {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Key()] = true
	}
	args := make(map[string]string, len(params))
	for _, a := range callArgs {
		if !known[a.Name] {
			return nil, fmt.Errorf("unknown argument %q", a.Name)
		}
		args[a.Name] = a.Value
	}
	for _, p := range params {
		if _, bound := args[p.Key()]; bound {
			continue
		}
		switch {
		case p.Default != nil:
			v, err := x.renderDefault(*p.Default)
			if err != nil {
				return nil, fmt.Errorf("default for %q: %w", p.Key(), err)
			}
			args[p.Key()] = v
		case p.IsWildcard():
			if p.Count > 0 {
				return nil, fmt.Errorf("wildcard %q requires %d values", p.Key(), p.Count)
			}
		default:
			return nil, fmt.Errorf("missing argument %q", p.Key())
		}
	}
	return args, nil
}

// renderDefault reduces a default value to its argument string form.
func (x *execution) renderDefault(v grovefile.Value) (string, error) {
	if v.Kind == grovefile.ValueArray {
		return strings.Join(v.Arr, ","), nil
	}
	return v.Render(x.eval)
}

// runHook template-processes and runs one lifecycle hook. A hidden hook
// discards its output; the exit status still counts.
func (x *execution) runHook(name string, h grovefile.Hook) error {
	prevPhase, prevHide := x.phase, x.hide
	x.phase, x.hide = name, h.Hide
	defer func() { x.phase, x.hide = prevPhase, prevHide }()

	text, err := x.processText(h.Value)
	if err != nil {
		return fmt.Errorf("%s hook of %q: %w", name, x.path, err)
	}
	stdout := io.Writer(x.rt.stdout())
	if h.Hide {
		stdout = io.Discard
	}
	return x.runScript(text, stdout, nil)
}

// runShell executes buffered shell text with the assembled environment.
func (x *execution) runShell(script string, stdout io.Writer) error {
	stderr := io.Writer(x.rt.stderr())
	if x.hide {
		stderr = io.Discard
	}
	res := x.sh.Run(x.ctx, RunSpec{
		Script: script,
		Dir:    x.cwd,
		Env:    x.env.slice(),
		Stdin:  x.rt.stdin(),
		Stdout: stdout,
		Stderr: stderr,
	})
	if res.Success() {
		return nil
	}
	return &ScriptError{
		Path:   x.path,
		Args:   x.args,
		Cwd:    x.cwd,
		Script: script,
		Code:   res.ExitCode,
		Hook:   x.phase,
		Err:    res.Err,
	}
}

// condition runs one if/elif guard expression with its output discarded;
// exit zero is true.
func (x *execution) condition(expr string) (bool, error) {
	text, err := x.processText(expr)
	if err != nil {
		return false, err
	}
	res := x.sh.Run(x.ctx, RunSpec{
		Script: text,
		Dir:    x.cwd,
		Env:    x.env.slice(),
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	if res.Err != nil {
		return false, fmt.Errorf("condition %q: %w", expr, res.Err)
	}
	return res.ExitCode == 0, nil
}
