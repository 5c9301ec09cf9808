// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/grovecli/grove/pkg/grovefile"
	"github.com/grovecli/grove/pkg/platform"
	"github.com/grovecli/grove/pkg/types"
)

type (
	// RunSpec describes one shell invocation.
	RunSpec struct {
		// Script is the shell text to run.
		Script string
		// Dir is the working directory ("" = process cwd).
		Dir string
		// Env is the full child environment as "KEY=VALUE" entries.
		// nil inherits the host environment.
		Env []string
		// Stdin, Stdout, Stderr are the child's streams. Capture ignores
		// Stdout and Stderr.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result is the outcome of one shell invocation.
	Result struct {
		ExitCode types.ExitCode
		// Err is an infrastructure failure (shell missing, spawn failure,
		// unparsable script). A plain non-zero exit leaves Err nil.
		Err error
		// Output and ErrOutput hold captured streams after Capture.
		Output    string
		ErrOutput string
	}

	// Shell runs script text. SystemShell spawns the platform shell,
	// BuiltinShell interprets in-process; both stream with Run and
	// collect with Capture.
	Shell interface {
		Name() string
		Available() bool
		Run(ctx context.Context, spec RunSpec) *Result
		Capture(ctx context.Context, spec RunSpec) *Result
	}

	// SystemShell executes scripts through the platform's shell binary.
	SystemShell struct {
		// Program overrides shell discovery ($SHELL, bash, sh on unix;
		// pwsh, powershell, cmd on windows).
		Program string
		// Args overrides the flag list placed before the script text.
		Args []string
	}
)

// Success reports a clean zero exit.
func (r *Result) Success() bool { return r.ExitCode == 0 && r.Err == nil }

// NewSystemShell creates a SystemShell with platform discovery.
func NewSystemShell() *SystemShell { return &SystemShell{} }

// ShellFor builds the Shell a name selects: "" keeps fallback, "builtin"
// is the embedded interpreter, anything else names a shell program.
func ShellFor(name string, fallback Shell) Shell {
	switch name {
	case "":
		return fallback
	case "builtin":
		return NewBuiltinShell()
	default:
		return &SystemShell{Program: name}
	}
}

func (s *SystemShell) Name() string { return "system" }

// Available reports whether a shell binary can be resolved.
func (s *SystemShell) Available() bool {
	_, err := s.resolve()
	return err == nil
}

// Run streams the script through the shell as a child process.
func (s *SystemShell) Run(ctx context.Context, spec RunSpec) *Result {
	cmd, err := s.command(ctx, spec)
	if err != nil {
		return &Result{ExitCode: 1, Err: err}
	}
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	return classifyRunError(cmd.Run(), nil, nil)
}

// Capture runs the script and collects stdout and stderr.
func (s *SystemShell) Capture(ctx context.Context, spec RunSpec) *Result {
	cmd, err := s.command(ctx, spec)
	if err != nil {
		return &Result{ExitCode: 1, Err: err}
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = spec.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return classifyRunError(cmd.Run(), &stdout, &stderr)
}

func (s *SystemShell) command(ctx context.Context, spec RunSpec) (*exec.Cmd, error) {
	program, err := s.resolve()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	args := append(s.shellArgs(program), spec.Script)
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	return cmd, nil
}

// resolve determines which shell binary to use.
func (s *SystemShell) resolve() (string, error) {
	if s.Program != "" {
		if strings.ContainsRune(s.Program, os.PathSeparator) {
			return s.Program, nil
		}
		return exec.LookPath(s.Program)
	}
	if platform.IsWindows() {
		for _, name := range []string{"pwsh", "powershell", "cmd"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
		return "", fmt.Errorf("no shell found (tried pwsh, powershell, cmd)")
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, nil
	}
	for _, name := range []string{"bash", "sh"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no shell found (tried $SHELL, bash, sh)")
}

// shellArgs returns the flags placed before the script text.
func (s *SystemShell) shellArgs(program string) []string {
	if len(s.Args) > 0 {
		return slices.Clone(s.Args)
	}
	base := strings.TrimSuffix(filepath.Base(program), ".exe")
	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}

func classifyRunError(err error, stdout, stderr *bytes.Buffer) *Result {
	res := &Result{}
	if stdout != nil {
		res.Output = stdout.String()
	}
	if stderr != nil {
		res.ErrOutput = stderr.String()
	}
	if err == nil {
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = types.ExitCode(exitErr.ExitCode())
		return res
	}
	res.ExitCode = 1
	res.Err = err
	return res
}

// Evaluator adapts a Shell into the command-substitution evaluator the
// parser and the template scope use for $(...) expressions. Non-zero
// exits fail the substitution; trailing newlines are trimmed the way
// shells trim $() output.
func Evaluator(sh Shell) grovefile.Evaluator {
	return func(expr string) (string, error) {
		res := sh.Capture(context.Background(), RunSpec{Script: expr})
		if res.Err != nil {
			return "", fmt.Errorf("command substitution $(%s): %w", expr, res.Err)
		}
		if res.ExitCode != 0 {
			if msg := strings.TrimSpace(res.ErrOutput); msg != "" {
				return "", fmt.Errorf("command substitution $(%s) exited with code %d: %s", expr, res.ExitCode, msg)
			}
			return "", fmt.Errorf("command substitution $(%s) exited with code %d", expr, res.ExitCode)
		}
		return strings.TrimRight(res.Output, "\n"), nil
	}
}

// EnvSlice flattens an environment map to sorted "KEY=VALUE" entries.
func EnvSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
