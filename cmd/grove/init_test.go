// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovecli/grove/pkg/grovefile"
)

// ---------------------------------------------------------------------------
// Template generation tests
// ---------------------------------------------------------------------------

func TestGenerateGrovefile_TemplatesParse(t *testing.T) {
	t.Parallel()

	for _, template := range []string{"minimal", "default", "full"} {
		t.Run(template, func(t *testing.T) {
			t.Parallel()

			text := generateGrovefile(template)
			if _, err := grovefile.NewParser().Parse(text); err != nil {
				t.Errorf("template %q does not parse: %v\n%s", template, err, text)
			}
		})
	}
}

func TestGenerateGrovefile_Minimal(t *testing.T) {
	t.Parallel()

	man, err := grovefile.NewParser().Parse(generateGrovefile("minimal"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	hello, err := man.Lookup("hello")
	if err != nil {
		t.Fatalf("lookup hello: %v", err)
	}
	if !hello.Runnable() {
		t.Error("hello should be runnable")
	}
	if desc := grovefile.NewResolver(hello.Directives).Desc(); desc != "Print a greeting" {
		t.Errorf("desc = %q, want %q", desc, "Print a greeting")
	}
}

func TestGenerateGrovefile_Default(t *testing.T) {
	t.Parallel()

	man, err := grovefile.NewParser().Parse(generateGrovefile("default"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, path := range []string{"build", "test", "clean"} {
		c, err := man.Lookup(path)
		if err != nil {
			t.Errorf("lookup %s: %v", path, err)
			continue
		}
		if !c.Runnable() {
			t.Errorf("%s should be runnable", path)
		}
	}
}

func TestGenerateGrovefile_Full(t *testing.T) {
	t.Parallel()

	man, err := grovefile.NewParser().Parse(generateGrovefile("full"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, ok := man.GlobalLookup("project"); !ok {
		t.Error("global project not declared")
	}
	rev, ok := man.GlobalLookup("rev")
	if !ok {
		t.Fatal("global rev not declared")
	}
	if rev.Value.Kind != grovefile.ValueDynamic {
		t.Errorf("rev kind = %v, want ValueDynamic", rev.Value.Kind)
	}

	build, err := man.Lookup("build")
	if err != nil {
		t.Fatalf("lookup build: %v", err)
	}
	if len(build.Params) != 2 {
		t.Fatalf("build params = %d, want 2", len(build.Params))
	}
	target := build.Params[0]
	if target.Name != "target" || target.Default == nil || target.Default.Str != "all" {
		t.Errorf("unexpected target parameter: %+v", target)
	}
	release := build.Params[1]
	if !release.Named || release.Alias != "r" || release.Type != grovefile.ParamBool {
		t.Errorf("unexpected release parameter: %+v", release)
	}

	test, err := man.Lookup("test")
	if err != nil {
		t.Fatalf("lookup test: %v", err)
	}
	deps, parallel, err := grovefile.NewResolver(test.Directives).Depends()
	if err != nil {
		t.Fatalf("test depends: %v", err)
	}
	if !parallel {
		t.Error("test dependencies should run in parallel")
	}
	if len(deps) != 2 || deps[0].Path != "test:unit" || deps[1].Path != "test:integration" {
		t.Errorf("test depends = %+v, want test:unit and test:integration", deps)
	}
	if _, err := man.Lookup("test:unit"); err != nil {
		t.Errorf("lookup test:unit: %v", err)
	}

	deploy, err := man.Lookup("deploy")
	if err != nil {
		t.Fatalf("lookup deploy: %v", err)
	}
	deployRes := grovefile.NewResolver(deploy.Directives)
	rules, err := deployRes.ValidateRules()
	if err != nil {
		t.Fatalf("deploy validate rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Target != "env" || len(rules[0].List) != 2 {
		t.Errorf("deploy rules = %+v, want env in [staging, production]", rules)
	}
	if confirm, ok := deployRes.RequireConfirm(); !ok || confirm == "" {
		t.Error("deploy should require confirmation")
	}

	dev, err := man.Lookup("dev")
	if err != nil {
		t.Fatalf("lookup dev: %v", err)
	}
	if patterns := grovefile.NewResolver(dev.Directives).Watch(); len(patterns) != 1 || patterns[0] != "src/**/*" {
		t.Errorf("dev watch = %v, want [src/**/*]", patterns)
	}

	clean, err := man.Lookup("clean")
	if err != nil {
		t.Fatalf("lookup clean: %v", err)
	}
	unixHook, ok := grovefile.NewResolverForOS(clean.Directives, grovefile.OSLinux).Hook(grovefile.DirScript)
	if !ok || !strings.Contains(unixHook.Value, "rm -rf") {
		t.Errorf("clean unix script = %+v, want rm -rf", unixHook)
	}
	winHook, ok := grovefile.NewResolverForOS(clean.Directives, grovefile.OSWindows).Hook(grovefile.DirScript)
	if !ok || !strings.Contains(winHook.Value, "rmdir") {
		t.Errorf("clean windows script = %+v, want rmdir", winHook)
	}
}

// ---------------------------------------------------------------------------
// Init command tests
// ---------------------------------------------------------------------------

func TestRunInit_CreatesManifest(t *testing.T) {
	tmpDir := chdirTemp(t)
	originalForce, originalTemplate := initForce, initTemplate
	initForce, initTemplate = false, "default"
	t.Cleanup(func() { initForce, initTemplate = originalForce, originalTemplate })

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, grovefile.ManifestName))
	if err != nil {
		t.Fatalf("read generated manifest: %v", err)
	}
	man, err := grovefile.NewParser().Parse(string(data))
	if err != nil {
		t.Fatalf("generated manifest does not parse: %v", err)
	}
	if _, err := man.Lookup("build"); err != nil {
		t.Errorf("lookup build: %v", err)
	}
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	tmpDir := chdirTemp(t)
	originalForce, originalTemplate := initForce, initTemplate
	initForce, initTemplate = false, "default"
	t.Cleanup(func() { initForce, initTemplate = originalForce, originalTemplate })

	existing := filepath.Join(tmpDir, grovefile.ManifestName)
	if err := os.WriteFile(existing, []byte("mine():\n    script: echo mine\n"), 0o644); err != nil {
		t.Fatalf("write existing manifest: %v", err)
	}

	err := runInit(initCmd, nil)
	if err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %q, want overwrite refusal", err)
	}

	data, _ := os.ReadFile(existing)
	if !strings.Contains(string(data), "mine()") {
		t.Error("existing manifest was overwritten")
	}

	initForce = true
	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit() with force error = %v", err)
	}
	data, _ = os.ReadFile(existing)
	if strings.Contains(string(data), "mine()") {
		t.Error("force should overwrite the existing manifest")
	}
}

func TestRunInit_ExplicitPath(t *testing.T) {
	tmpDir := chdirTemp(t)
	originalForce, originalTemplate := initForce, initTemplate
	initForce, initTemplate = false, "minimal"
	t.Cleanup(func() { initForce, initTemplate = originalForce, originalTemplate })

	if err := runInit(initCmd, []string{"ci.grove"}); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "ci.grove")); err != nil {
		t.Errorf("explicit path not created: %v", err)
	}
}
