// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/grovecli/grove/pkg/types"
)

// Sentinel errors for the execution failure classes. Typed errors below
// unwrap to these so callers can classify with errors.Is.
var (
	ErrCycle         = errors.New("circular dependency")
	ErrMissingScript = errors.New("command has no script")
	ErrValidation    = errors.New("validation failed")
	ErrPrivilege     = errors.New("privilege check failed")
)

type (
	// CycleError reports a command invoking itself through its dependency
	// or call chain, in this process or across re-invoked grove processes.
	CycleError struct {
		// Stack is the call chain that led to the repeated path.
		Stack []string
		// Path is the command path that closed the cycle.
		Path string
	}

	// ValidationError reports a validate rule that did not pass.
	ValidationError struct {
		Path   string
		Target string
		Reason string
	}

	// MissingScriptError reports an invoked command with no script
	// directive. Group commands exist to hold children and cannot be run
	// directly.
	MissingScriptError struct {
		Path string
	}

	// PrivilegeError reports a privileged command invoked without
	// elevation.
	PrivilegeError struct {
		Path string
		Hint string
	}

	// ScriptError reports a script or hook that exited non-zero, carrying
	// everything the diagnostic surface renders.
	ScriptError struct {
		Path   string
		Args   map[string]string
		Cwd    string
		Script string
		Code   types.ExitCode
		// Hook names the lifecycle phase ("before", "after", "fallback",
		// "finally", "condition") or "" for the main script.
		Hook string
		// Err is the underlying infrastructure failure, nil for a plain
		// non-zero exit.
		Err error
	}

	// DependencyError aggregates the failures of a parallel dependency
	// fan-out. Every dependency runs to completion; every failure is
	// collected.
	DependencyError struct {
		Path string
		Errs []error
	}
)

func (e *CycleError) Error() string {
	chain := append(append([]string{}, e.Stack...), e.Path)
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(chain, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s: %s", e.Path, e.Target, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *MissingScriptError) Error() string {
	return fmt.Sprintf("command %q has no script", e.Path)
}

func (e *MissingScriptError) Unwrap() error { return ErrMissingScript }

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("command %q requires elevated privileges: %s", e.Path, e.Hint)
}

func (e *PrivilegeError) Unwrap() error { return ErrPrivilege }

func (e *ScriptError) Error() string {
	phase := "command"
	if e.Hook != "" {
		phase = e.Hook + " hook of"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %q failed: %v", phase, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %q exited with code %d", phase, e.Path, e.Code)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code the failure maps to.
func (e *ScriptError) ExitCode() types.ExitCode {
	if e.Code != 0 {
		return e.Code
	}
	return 1
}

// NotFound reports whether the exit code is the shell's conventional
// "command not found" status.
func (e *ScriptError) NotFound() bool { return e.Code == 127 }

func (e *DependencyError) Error() string {
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d dependencies of %q failed: %s", len(e.Errs), e.Path, strings.Join(parts, "; "))
}

func (e *DependencyError) Unwrap() []error { return e.Errs }

// ExitCodeFor maps an execution outcome to a process exit code: nil is
// success, a script exit keeps its code, everything else is 1.
func ExitCodeFor(err error) types.ExitCode {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.ExitCode()
	}
	return types.FromError(err)
}
