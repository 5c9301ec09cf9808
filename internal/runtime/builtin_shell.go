// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/grovecli/grove/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// BuiltinShell runs scripts on an embedded POSIX interpreter. It needs
// no external shell binary, which makes it the portable choice on hosts
// without one and keeps tests hermetic.
type BuiltinShell struct{}

// NewBuiltinShell creates a BuiltinShell.
func NewBuiltinShell() *BuiltinShell { return &BuiltinShell{} }

func (s *BuiltinShell) Name() string { return "builtin" }

// Available always reports true: the interpreter ships with the binary.
func (s *BuiltinShell) Available() bool { return true }

// Run interprets the script, streaming to the RunSpec writers.
func (s *BuiltinShell) Run(ctx context.Context, spec RunSpec) *Result {
	return s.run(ctx, spec, spec.Stdout, spec.Stderr)
}

// Capture interprets the script and collects stdout and stderr.
func (s *BuiltinShell) Capture(ctx context.Context, spec RunSpec) *Result {
	var stdout, stderr bytes.Buffer
	res := s.run(ctx, spec, &stdout, &stderr)
	res.Output = stdout.String()
	res.ErrOutput = stderr.String()
	return res
}

// Check parses the script without running it, reporting syntax errors.
func (s *BuiltinShell) Check(script string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

func (s *BuiltinShell) run(ctx context.Context, spec RunSpec, stdout, stderr io.Writer) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(spec.Script), "script")
	if err != nil {
		return &Result{ExitCode: 1, Err: fmt.Errorf("failed to parse script: %w", err)}
	}

	env := spec.Env
	if env == nil {
		env = hostEnviron()
	}
	runner, err := interp.New(
		interp.Dir(spec.Dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(spec.Stdin, stdout, stderr),
	)
	if err != nil {
		return &Result{ExitCode: 1, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &Result{ExitCode: types.ExitCode(exitStatus)}
		}
		return &Result{ExitCode: 1, Err: fmt.Errorf("script execution failed: %w", err)}
	}
	return &Result{}
}
