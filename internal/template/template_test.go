// SPDX-License-Identifier: MPL-2.0

package template

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/grovecli/grove/pkg/grovefile"
)

func assign(name, v string) grovefile.Assignment {
	return grovefile.Assignment{Name: name, Value: grovefile.StringValue(v)}
}

func TestProcess_LayerPrecedence(t *testing.T) {
	t.Parallel()
	layers := Layers{
		GlobalConsts: []grovefile.Assignment{assign("x", "global-const")},
		GlobalVars:   []grovefile.Assignment{assign("x", "global-var")},
		ParentConsts: []grovefile.Assignment{assign("x", "parent-const")},
		ParentVars:   []grovefile.Assignment{assign("x", "parent-var")},
		LocalConsts:  []grovefile.Assignment{assign("x", "local-const")},
		LocalVars:    []grovefile.Assignment{assign("x", "local-var")},
		ParentArgs:   map[string]string{"x": "parent-arg"},
		Args:         map[string]string{"x": "arg"},
	}

	// Peel layers off from the top; each time the next one down wins.
	steps := []struct {
		name   string
		strip  func(*Layers)
		expect string
	}{
		{"args win", func(l *Layers) {}, "arg"},
		{"then parent args", func(l *Layers) { l.Args = nil }, "parent-arg"},
		{"then local vars", func(l *Layers) { l.Args = nil; l.ParentArgs = nil }, "local-var"},
		{"then local consts", func(l *Layers) {
			l.Args, l.ParentArgs, l.LocalVars = nil, nil, nil
		}, "local-const"},
		{"then parent vars", func(l *Layers) {
			l.Args, l.ParentArgs, l.LocalVars, l.LocalConsts = nil, nil, nil, nil
		}, "parent-var"},
		{"then parent consts", func(l *Layers) {
			l.Args, l.ParentArgs, l.LocalVars, l.LocalConsts, l.ParentVars = nil, nil, nil, nil, nil
		}, "parent-const"},
		{"then global vars", func(l *Layers) {
			l.Args, l.ParentArgs, l.LocalVars, l.LocalConsts, l.ParentVars, l.ParentConsts = nil, nil, nil, nil, nil, nil
		}, "global-var"},
		{"then global consts", func(l *Layers) {
			*l = Layers{GlobalConsts: l.GlobalConsts}
		}, "global-const"},
	}
	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := layers
			tt.strip(&l)
			got, err := Process("{{x}}", Build(l, nil))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestProcess_ParentArgsFillOnlyMissing(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{
		Args:       map[string]string{"a": "mine"},
		ParentArgs: map[string]string{"a": "theirs", "b": "inherited"},
	}, nil)
	got, err := Process("{{a}} {{b}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "mine inherited" {
		t.Errorf("expected \"mine inherited\", got %q", got)
	}
}

func TestProcess_UnmappedStaysVerbatim(t *testing.T) {
	t.Parallel()
	got, err := Process("run {{missing}} now", Build(Layers{}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "run {{missing}} now" {
		t.Errorf("expected the span untouched, got %q", got)
	}
}

func TestProcess_FlagValueRendersTrue(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"force": "--force"}}, nil)
	got, err := Process("{{force}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "true" {
		t.Errorf("expected a flag value to render true, got %q", got)
	}
}

func TestProcess_CopyModifier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		val  string
		want string
	}{
		{"true", "--force"},
		{"false", ""},
		{"anything", "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			t.Parallel()
			scope := Build(Layers{Args: map[string]string{"force": tt.val}}, nil)
			got, err := Process("{{force|copy}}", scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestProcess_SepModifier(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{
		LocalVars: []grovefile.Assignment{
			{Name: "files", Value: grovefile.ArrayValue("a.go", "b.go", "c.go")},
		},
	}, nil)
	got, err := Process(`{{files|sep:","}}`, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a.go,b.go,c.go" {
		t.Errorf("expected comma separation, got %q", got)
	}
}

func TestProcess_RepModifier(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"path": "a/b/c"}}, nil)
	got, err := Process(`{{path|rep:"/"=>"-"}}`, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a-b-c" {
		t.Errorf("expected replacement, got %q", got)
	}
}

func TestProcess_UnknownModifierFallsBack(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"x": "raw"}}, nil)
	got, err := Process("{{x|frobnicate}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "raw" {
		t.Errorf("expected the raw value, got %q", got)
	}
}

// Not parallel: swaps the package clock seam.
func TestProcess_Builtins(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now
	now = func() time.Time { return fixed }
	defer func() { now = old }()

	scope := Build(Layers{}, nil)
	got, err := Process("at {{now}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "at "+fixed.Format(time.RFC3339) {
		t.Errorf("unexpected now expansion: %q", got)
	}

	got, err = Process("{{user}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" || got == "{{user}}" {
		t.Errorf("expected a user name, got %q", got)
	}
}

func TestProcess_BuiltinShadowedByBinding(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"now": "never"}}, nil)
	got, err := Process("{{now}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "never" {
		t.Errorf("expected the binding to shadow the builtin, got %q", got)
	}
}

func TestProcess_ErrorMessageOnlyInFallback(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{}, nil)
	got, err := Process("{{SYSTEM_ERROR_MESSAGE}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{{SYSTEM_ERROR_MESSAGE}}" {
		t.Errorf("expected the span untouched outside fallback, got %q", got)
	}

	scope.SetErrorMessage("exit status 3")
	got, err = Process("failed: {{SYSTEM_ERROR_MESSAGE}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "failed: exit status 3" {
		t.Errorf("expected the message, got %q", got)
	}
}

func TestScope_DynamicResolvesLazilyAndOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	eval := func(expr string) (string, error) {
		calls++
		return "resolved:" + expr, nil
	}
	scope := Build(Layers{
		GlobalVars: []grovefile.Assignment{
			{Name: "rev", Value: grovefile.DynamicValue("git sha")},
			{Name: "unused", Value: grovefile.DynamicValue("never run")},
		},
	}, eval)

	got, err := Process("{{rev}} {{rev}}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "resolved:git sha resolved:git sha" {
		t.Errorf("unexpected expansion: %q", got)
	}
	if calls != 1 {
		t.Errorf("expected one evaluation, got %d", calls)
	}
}

func TestScope_DynamicFailurePropagates(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("exit status 1")
	scope := Build(Layers{
		GlobalVars: []grovefile.Assignment{
			{Name: "bad", Value: grovefile.DynamicValue("false")},
		},
	}, func(string) (string, error) { return "", wantErr })

	_, err := Process("{{bad}}", scope)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the evaluator error, got %v", err)
	}
}

func TestExpandWildcard(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"*": "a.txt b.txt"}}, nil)
	got, err := ExpandWildcard("cp $* /dest", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cp a.txt b.txt /dest" {
		t.Errorf("unexpected expansion: %q", got)
	}

	// Without a wildcard binding the shell keeps its own $*.
	got, err = ExpandWildcard("echo $*", Build(Layers{}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "echo $*" {
		t.Errorf("expected $* untouched, got %q", got)
	}
}

func TestProcessFunctionCalls(t *testing.T) {
	t.Parallel()
	resolve := func(call grovefile.Call) (string, bool, error) {
		if call.Path != "greet" {
			return "", false, nil
		}
		name, _ := call.Arg("name")
		return "hello " + name, true, nil
	}

	got, err := ProcessFunctionCalls("say {{ greet(name=ada) }} and {{ unknown(x=1) }}", resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "say hello ada and {{ unknown(x=1) }}"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Plain placeholder spans are not the function pass's business.
	got, err = ProcessFunctionCalls("{{plain}}", resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{{plain}}" {
		t.Errorf("expected plain spans untouched, got %q", got)
	}
}

func TestProcess_MixedTextAroundSpans(t *testing.T) {
	t.Parallel()
	scope := Build(Layers{Args: map[string]string{"a": "1", "b": "2"}}, nil)
	got, err := Process("x {{a}} y {{b}} z {{", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "x 1 y 2 z {{" {
		t.Errorf("unexpected result: %q", got)
	}
	if !strings.Contains(got, "z {{") {
		t.Error("expected the dangling open marker preserved")
	}
}
