// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"strings"
	"testing"
)

func TestExecute_CallLineRunsSiblingCommand(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"greet(name):",
		"    script: echo hello {{name}}",
		"main():",
		"    script: greet(name=world)",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "hello world\n" {
		t.Errorf("expected the callee output, got %q", got)
	}
}

func TestExecute_CallLineFlushesSurroundingShell(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"mid():",
		"    script: echo mid",
		"main():",
		"    script: |",
		"        echo one",
		"        mid",
		"        echo two",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "one\nmid\ntwo\n" {
		t.Errorf("expected interleaved output, got %q", got)
	}
}

func TestExecute_CalleeSeesCallerArgs(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"child():",
		"    script: echo {{flavor}}",
		"main(flavor):",
		"    script: child",
	)
	if err := tr.exec("main", map[string]string{"flavor": "vanilla"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "vanilla\n" {
		t.Errorf("expected the caller argument to be visible, got %q", got)
	}
}

func TestExecute_SelfCallDemotedToShell(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"run():",
		"    script: |",
		"        echo start",
		"        run",
	)
	err := tr.exec("run", nil)
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("expected a shell failure, not a cycle, got %v", err)
	}
	if !se.NotFound() {
		t.Errorf("expected command-not-found from the shell, got code %d", se.Code)
	}
	if errors.Is(err, ErrCycle) {
		t.Errorf("expected the self call to be demoted, got cycle error %v", err)
	}
	if !strings.Contains(tr.out.String(), "start") {
		t.Errorf("expected the preceding shell line to run, got %q", tr.out.String())
	}
}

func TestExecute_RootAnchoredCallFromSibling(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"tools():",
		"    fmt():",
		"        script: echo formatted",
		"main():",
		"    script: tools:fmt",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "formatted\n" {
		t.Errorf("expected the nested command to run, got %q", got)
	}
}

func TestExecute_ShellPrefixForcesLiteral(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"hello():",
		"    script: echo hi",
		"main():",
		"    script: |",
		"        shell: hello",
	)
	err := tr.exec("main", nil)
	var se *ScriptError
	if !errors.As(err, &se) || !se.NotFound() {
		t.Fatalf("expected the line to hit the shell verbatim, got %v", err)
	}
	if strings.Contains(tr.out.String(), "hi") {
		t.Errorf("expected the manifest command not to run, got %q", tr.out.String())
	}
}

func TestExecute_FunctionCallStreamsInline(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function shout():",
		"    echo LOUD",
		"main():",
		"    script: shout",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "LOUD\n" {
		t.Errorf("expected streamed function output, got %q", got)
	}
}

func TestExecute_FunctionTemplateCapturesOutput(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function ver():",
		"    echo 1.2.3",
		"main():",
		"    script: echo v{{ver()}}",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "v1.2.3\n" {
		t.Errorf("expected the captured value inline, got %q", got)
	}
}

func TestExecute_FunctionReturnShortCircuits(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function pick():",
		"    echo first",
		"    return done",
		"    echo after",
		"main():",
		"    script: echo {{pick()}}",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "done\n" {
		t.Errorf("expected the return value only, got %q", got)
	}
}

func TestExecute_FunctionArgsAndDefaults(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function greet(name, punct = \"!\"):",
		"    return hi {{name}}{{punct}}",
		"main():",
		"    script: echo {{greet(name=bob)}}",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "hi bob!\n" {
		t.Errorf("expected the default to fill in, got %q", got)
	}
}

func TestExecute_FunctionUnknownArgRejected(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function greet(name):",
		"    return hi {{name}}",
		"main():",
		"    script: echo {{greet(nmae=bob)}}",
	)
	err := tr.exec("main", nil)
	if err == nil {
		t.Fatal("expected an unknown argument error")
	}
	if !strings.Contains(err.Error(), "nmae") {
		t.Errorf("expected the bad argument to be named, got %v", err)
	}
}

func TestExecute_FunctionDepthCapped(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"function rec():",
		"    rec",
		"main():",
		"    script: rec",
	)
	err := tr.exec("main", nil)
	if err == nil {
		t.Fatal("expected the recursion to be cut off")
	}
	if !strings.Contains(err.Error(), "call depth exceeds") {
		t.Errorf("expected the depth cap in the message, got %v", err)
	}
}

func TestExecute_WildcardArgsExpandInScript(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"fmt(*):",
		"    script: echo files: $*",
	)
	if err := tr.exec("fmt", map[string]string{"*": "a.go b.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "files: a.go b.go\n" {
		t.Errorf("expected the wildcard expansion, got %q", got)
	}
}

func TestExecute_CallLineArgsBindDefaults(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"greet(name, punct = \"?\"):",
		"    script: echo {{name}}{{punct}}",
		"main():",
		"    script: greet(name=eve)",
	)
	if err := tr.exec("main", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.out.String(); got != "eve?\n" {
		t.Errorf("expected the callee default to apply, got %q", got)
	}
}

func TestExecute_CallLineMissingRequiredArg(t *testing.T) {
	t.Parallel()
	tr := newTestRun(t,
		"greet(name):",
		"    script: echo {{name}}",
		"main():",
		"    script: greet",
	)
	err := tr.exec("main", nil)
	if err == nil {
		t.Fatal("expected a missing argument error")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("expected the missing argument to be named, got %v", err)
	}
}
