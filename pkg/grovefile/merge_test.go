// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"path/filepath"
	"testing"
)

func cmdWithDirectives(name string, directives ...Directive) *Command {
	return &Command{Name: name, Directives: directives}
}

func TestMerge_LaterScalarReplaces(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("build",
			Directive{Key: DirDesc, Value: "old"},
			Directive{Key: DirScript, Value: "make old"},
		),
		cmdWithDirectives("build",
			Directive{Key: DirScript, Value: "make new"},
		),
	})
	if len(merged) != 1 {
		t.Fatalf("expected 1 command, got %d", len(merged))
	}
	res := NewResolverForOS(merged[0].Directives, OSLinux)
	if got := res.Desc(); got != "old" {
		t.Errorf("expected desc kept from the base, got %q", got)
	}
	h, ok := res.Hook(DirScript)
	if !ok || h.Value != "make new" {
		t.Errorf("expected the later script, got %+v", h)
	}
	// The base's script entry is gone entirely, not just outscored.
	count := 0
	for _, d := range merged[0].Directives {
		if d.Key == DirScript {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 script directive, got %d", count)
	}
}

func TestMerge_ScalarReplaceDropsOSVariants(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("build",
			Directive{Key: DirScript, Value: "generic"},
			Directive{Key: DirScript, Value: "old linux", OS: "linux"},
		),
		cmdWithDirectives("build",
			Directive{Key: DirScript, Value: "new generic"},
		),
	})
	res := NewResolverForOS(merged[0].Directives, OSLinux)
	h, _ := res.Hook(DirScript)
	if h.Value != "new generic" {
		t.Errorf("expected all base script variants replaced, got %q", h.Value)
	}
}

func TestMerge_DependsFullyReplaces(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("all", Directive{Key: DirDepends, Value: "a, b"}),
		cmdWithDirectives("all", Directive{Key: DirDepends, Value: "c"}),
	})
	deps, _, err := NewResolverForOS(merged[0].Directives, OSLinux).Depends()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 1 || deps[0].Path != "c" {
		t.Errorf("expected the later depends list only, got %v", deps)
	}
}

func TestMerge_EnvMergesPerKey(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("serve",
			Directive{Key: DirEnv, EnvName: "PORT", Value: "8080"},
			Directive{Key: DirEnv, EnvName: "HOST", Value: "localhost"},
		),
		cmdWithDirectives("serve",
			Directive{Key: DirEnv, EnvName: "PORT", Value: "9090"},
			Directive{Key: DirEnv, EnvName: "DEBUG", Value: "1"},
		),
	})
	entries := NewResolverForOS(merged[0].Directives, OSLinux).Env()
	if len(entries) != 3 {
		t.Fatalf("expected 3 env entries, got %d", len(entries))
	}
	byName := map[string]string{}
	for _, e := range entries {
		byName[e.EnvName] = e.Value
	}
	if byName["PORT"] != "9090" {
		t.Errorf("expected the later PORT, got %q", byName["PORT"])
	}
	if byName["HOST"] != "localhost" || byName["DEBUG"] != "1" {
		t.Errorf("expected untouched keys kept: %v", byName)
	}
}

func TestMerge_ValidateAccumulates(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("x", Directive{Key: DirValidate, Value: "a matches /1/"}),
		cmdWithDirectives("x", Directive{Key: DirValidate, Value: "b matches /2/"}),
	})
	rules, err := NewResolverForOS(merged[0].Directives, OSLinux).ValidateRules()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("expected both validate rules kept, got %d", len(rules))
	}
}

func TestMerge_ParameterOverride(t *testing.T) {
	t.Parallel()
	base := &Command{Name: "x", Params: []Parameter{{Name: "a", Type: ParamString}}}
	empty := &Command{Name: "x"}
	replace := &Command{Name: "x", Params: []Parameter{
		{Name: "b", Type: ParamBool},
		{Name: "c", Type: ParamNumber},
	}}

	merged := MergeCommands([]*Command{base, empty})
	if len(merged[0].Params) != 1 || merged[0].Params[0].Name != "a" {
		t.Errorf("expected an empty override to keep the base signature, got %+v", merged[0].Params)
	}

	merged = MergeCommands([]*Command{base, replace})
	if len(merged[0].Params) != 2 || merged[0].Params[0].Name != "b" {
		t.Errorf("expected a non-empty override to replace the signature, got %+v", merged[0].Params)
	}
}

func TestMerge_ChildrenRecurse(t *testing.T) {
	t.Parallel()
	first := &Command{Name: "test"}
	first.AddChild(cmdWithDirectives("unit", Directive{Key: DirScript, Value: "old"}))
	second := &Command{Name: "test"}
	second.AddChild(cmdWithDirectives("unit", Directive{Key: DirScript, Value: "new"}))
	second.AddChild(cmdWithDirectives("integ", Directive{Key: DirScript, Value: "integ"}))

	merged := MergeCommands([]*Command{first, second})
	if len(merged) != 1 || len(merged[0].Children) != 2 {
		t.Fatalf("expected one group with 2 children, got %+v", merged)
	}
	unit := merged[0].Children[0]
	if unit.Name != "unit" {
		t.Fatalf("expected unit first, got %q", unit.Name)
	}
	h, _ := NewResolverForOS(unit.Directives, OSLinux).Hook(DirScript)
	if h.Value != "new" {
		t.Errorf("expected the later unit script, got %q", h.Value)
	}
	if unit.Parent() != merged[0] {
		t.Error("expected parent pointers rewired after merge")
	}
	if unit.Path() != "test:unit" {
		t.Errorf("expected path test:unit, got %q", unit.Path())
	}
}

func TestMerge_FirstOccurrenceOrder(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		cmdWithDirectives("b"),
		cmdWithDirectives("a"),
		cmdWithDirectives("b"),
	})
	if len(merged) != 2 || merged[0].Name != "b" || merged[1].Name != "a" {
		t.Errorf("expected first-occurrence order [b a], got %+v", merged)
	}
}

func TestMerge_VarsAppend(t *testing.T) {
	t.Parallel()
	merged := MergeCommands([]*Command{
		{Name: "x", Vars: []Assignment{{Name: "v", Value: StringValue("1")}}},
		{Name: "x", Vars: []Assignment{{Name: "v", Value: StringValue("2")}}},
	})
	if len(merged[0].Vars) != 2 {
		t.Errorf("expected appended vars, got %+v", merged[0].Vars)
	}
}

func TestMerge_Associativity(t *testing.T) {
	t.Parallel()
	build := func() []*Command {
		return []*Command{
			cmdWithDirectives("x",
				Directive{Key: DirScript, Value: "one"},
				Directive{Key: DirEnv, EnvName: "A", Value: "1"},
			),
			cmdWithDirectives("x",
				Directive{Key: DirDepends, Value: "d1"},
				Directive{Key: DirEnv, EnvName: "A", Value: "2"},
			),
			cmdWithDirectives("x",
				Directive{Key: DirScript, Value: "three"},
				Directive{Key: DirDepends, Value: "d2"},
				Directive{Key: DirEnv, EnvName: "B", Value: "3"},
			),
		}
	}

	all := build()
	direct := MergeCommands(all)

	staged := MergeCommands(append(MergeCommands(all[:2]), all[2]))

	dRes := NewResolverForOS(direct[0].Directives, OSLinux)
	sRes := NewResolverForOS(staged[0].Directives, OSLinux)

	dh, _ := dRes.Hook(DirScript)
	sh, _ := sRes.Hook(DirScript)
	if dh.Value != sh.Value || dh.Value != "three" {
		t.Errorf("script mismatch: direct %q staged %q", dh.Value, sh.Value)
	}

	dd, _, _ := dRes.Depends()
	sd, _, _ := sRes.Depends()
	if len(dd) != 1 || len(sd) != 1 || dd[0].Path != sd[0].Path {
		t.Errorf("depends mismatch: direct %v staged %v", dd, sd)
	}

	dEnv := map[string]string{}
	for _, e := range dRes.Env() {
		dEnv[e.EnvName] = e.Value
	}
	sEnv := map[string]string{}
	for _, e := range sRes.Env() {
		sEnv[e.EnvName] = e.Value
	}
	if dEnv["A"] != "2" || sEnv["A"] != "2" || dEnv["B"] != sEnv["B"] {
		t.Errorf("env mismatch: direct %v staged %v", dEnv, sEnv)
	}
}

func TestMerge_AbsolutizesRelativePaths(t *testing.T) {
	t.Parallel()
	cmd := &Command{
		Name:       "serve",
		SourceFile: "/work/sub/extra.grove",
		Directives: []Directive{
			{Key: DirCwd, Value: "./app"},
			{Key: DirEnvFile, Value: "service.env"},
			{Key: DirLogs, Value: "/var/log/run.log"},
			{Key: DirCwd, Value: "{{dir}}", OS: "windows"},
		},
	}
	merged := MergeCommands([]*Command{cmd})
	ds := merged[0].Directives
	if want := filepath.Join("/work/sub", "app"); ds[0].Value != want {
		t.Errorf("expected cwd %q, got %q", want, ds[0].Value)
	}
	if want := filepath.Join("/work/sub", "service.env"); ds[1].Value != want {
		t.Errorf("expected env file %q, got %q", want, ds[1].Value)
	}
	if ds[2].Value != "/var/log/run.log" {
		t.Errorf("expected absolute path untouched, got %q", ds[2].Value)
	}
	if ds[3].Value != "{{dir}}" {
		t.Errorf("expected templated path untouched, got %q", ds[3].Value)
	}
}
