// SPDX-License-Identifier: MPL-2.0

// Package runtime executes grove commands through their full lifecycle.
//
// One invocation runs a ten-step state machine: cycle check, validation,
// dependency execution, confirmation gate, environment assembly, before
// hook, main script, outcome branch (after hook or fallback), run log,
// and finally hook. Script text is classified line by line: function
// calls run inline, command calls recurse into the lifecycle, and raw
// shell lines are buffered and flushed in one shell invocation per call
// boundary.
//
// Two shells are available: SystemShell spawns the platform shell as a
// child process, BuiltinShell runs an embedded POSIX interpreter and
// needs no external binary. Both also serve as the evaluator behind
// $(...) command substitution in manifests.
//
// Cycle protection is dual: an in-process visited set covers recursion
// and parallel fan-out within one grove process, and the GROVE_CALL_STACK
// environment variable covers recursion across re-invoked grove
// processes.
package runtime
