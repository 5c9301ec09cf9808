// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/grovecli/grove/pkg/grovefile"
)

// ---------------------------------------------------------------------------
// Usage string tests
// ---------------------------------------------------------------------------

func TestBuildUsageString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		params   []grovefile.Parameter
		expected string
	}{
		{
			name:     "no parameters",
			path:     "build",
			params:   nil,
			expected: "build",
		},
		{
			name: "required parameter",
			path: "deploy",
			params: []grovefile.Parameter{
				{Name: "env", Type: grovefile.ParamString},
			},
			expected: "deploy <env>",
		},
		{
			name: "parameter with default",
			path: "deploy",
			params: []grovefile.Parameter{
				{Name: "env", Type: grovefile.ParamString, Default: defVal(grovefile.StringValue("dev"))},
			},
			expected: "deploy [env]",
		},
		{
			name: "named parameter skipped",
			path: "deploy",
			params: []grovefile.Parameter{
				{Name: "env", Type: grovefile.ParamString},
				{Name: "tag", Type: grovefile.ParamString, Named: true},
			},
			expected: "deploy <env>",
		},
		{
			name: "captured wildcard",
			path: "fmt",
			params: []grovefile.Parameter{
				{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName, Capture: "files"},
			},
			expected: "fmt [files...]",
		},
		{
			name: "anonymous wildcard",
			path: "exec",
			params: []grovefile.Parameter{
				{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName},
			},
			expected: "exec [args...]",
		},
		{
			name: "counted wildcard",
			path: "swap",
			params: []grovefile.Parameter{
				{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName, Capture: "pair", Count: 2},
			},
			expected: "swap <pair x2>",
		},
		{
			name: "nested path with mixed signature",
			path: "test:unit",
			params: []grovefile.Parameter{
				{Name: "suite", Type: grovefile.ParamString},
				{Name: "verbose", Type: grovefile.ParamBool, Named: true, Default: defVal(grovefile.BoolValue(false))},
				{Name: "filter", Type: grovefile.ParamString, Default: defVal(grovefile.StringValue(""))},
				{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName, Capture: "extra"},
			},
			expected: "test:unit <suite> [filter] [extra...]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildUsageString(tt.path, tt.params)
			if got != tt.expected {
				t.Errorf("buildUsageString(%q, ...) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Positional arity tests
// ---------------------------------------------------------------------------

func TestBuildArgsValidator(t *testing.T) {
	t.Parallel()

	required := grovefile.Parameter{Name: "env", Type: grovefile.ParamString}
	optional := grovefile.Parameter{Name: "replicas", Type: grovefile.ParamNumber, Default: defVal(grovefile.NumberValue(1))}
	named := grovefile.Parameter{Name: "tag", Type: grovefile.ParamString, Named: true}
	openWildcard := grovefile.Parameter{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName, Capture: "rest"}
	countedWildcard := grovefile.Parameter{Kind: grovefile.ParamWildcard, Name: grovefile.WildcardName, Capture: "pair", Count: 2}

	tests := []struct {
		name    string
		params  []grovefile.Parameter
		args    []string
		wantErr string
	}{
		{
			name:   "no parameters no arguments",
			params: nil,
			args:   nil,
		},
		{
			name:    "no parameters rejects extras",
			params:  nil,
			args:    []string{"x"},
			wantErr: "accepts at most 0 positional argument(s), got 1",
		},
		{
			name:    "required parameter missing",
			params:  []grovefile.Parameter{required, optional},
			args:    nil,
			wantErr: "requires at least 1 positional argument(s), got 0",
		},
		{
			name:   "optional parameter may be omitted",
			params: []grovefile.Parameter{required, optional},
			args:   []string{"prod"},
		},
		{
			name:   "optional parameter filled",
			params: []grovefile.Parameter{required, optional},
			args:   []string{"prod", "3"},
		},
		{
			name:    "extras past the signature",
			params:  []grovefile.Parameter{required, optional},
			args:    []string{"prod", "3", "surplus"},
			wantErr: "accepts at most 2 positional argument(s), got 3",
		},
		{
			name:   "named parameters do not count",
			params: []grovefile.Parameter{required, named},
			args:   []string{"prod"},
		},
		{
			name:   "open wildcard removes the ceiling",
			params: []grovefile.Parameter{required, openWildcard},
			args:   []string{"prod", "a", "b", "c", "d"},
		},
		{
			name:    "counted wildcard raises the floor",
			params:  []grovefile.Parameter{required, countedWildcard},
			args:    []string{"prod", "left"},
			wantErr: "requires at least 3 positional argument(s), got 2",
		},
		{
			name:   "counted wildcard exact fit",
			params: []grovefile.Parameter{required, countedWildcard},
			args:   []string{"prod", "left", "right"},
		},
		{
			name:    "counted wildcard caps the ceiling",
			params:  []grovefile.Parameter{required, countedWildcard},
			args:    []string{"prod", "left", "right", "surplus"},
			wantErr: "accepts at most 3 positional argument(s), got 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := buildArgsValidator(tt.params)(nil, tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validator(%v) error = %v, want nil", tt.args, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("validator(%v) expected error %q", tt.args, tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("validator(%v) error = %q, want %q", tt.args, err.Error(), tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Flag registration tests
// ---------------------------------------------------------------------------

func TestRegisterParamFlag_Types(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "probe"}
	registerParamFlag(cmd, grovefile.Parameter{Name: "tag", Alias: "g", Type: grovefile.ParamString, Named: true, Default: defVal(grovefile.StringValue("latest"))})
	registerParamFlag(cmd, grovefile.Parameter{Name: "release", Type: grovefile.ParamBool, Named: true, Default: defVal(grovefile.BoolValue(false))})
	registerParamFlag(cmd, grovefile.Parameter{Name: "replicas", Type: grovefile.ParamNumber, Named: true, Default: defVal(grovefile.NumberValue(2))})
	registerParamFlag(cmd, grovefile.Parameter{Name: "targets", Type: grovefile.ParamArray, Named: true, Default: defVal(grovefile.ArrayValue("linux", "darwin"))})

	tests := []struct {
		name     string
		flag     string
		expected string
	}{
		{name: "string flag", flag: "tag", expected: "string"},
		{name: "bool flag", flag: "release", expected: "bool"},
		{name: "number flag", flag: "replicas", expected: "float64"},
		{name: "array flag", flag: "targets", expected: "stringSlice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := cmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not registered", tt.flag)
			}
			if f.Value.Type() != tt.expected {
				t.Errorf("flag --%s type = %q, want %q", tt.flag, f.Value.Type(), tt.expected)
			}
		})
	}

	if cmd.Flags().ShorthandLookup("g") == nil {
		t.Error("alias g should register as shorthand")
	}
	if f := cmd.Flags().Lookup("tag"); f != nil && f.DefValue != "latest" {
		t.Errorf("flag --tag default = %q, want %q", f.DefValue, "latest")
	}
}

func TestRegisterParamFlag_ReservedAlias(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "probe"}
	registerParamFlag(cmd, grovefile.Parameter{Name: "force", Alias: "f", Type: grovefile.ParamBool, Named: true})

	if cmd.Flags().Lookup("force") == nil {
		t.Fatal("flag --force not registered")
	}
	if cmd.Flags().ShorthandLookup("f") != nil {
		t.Error("reserved alias f should not register as shorthand")
	}
}

func TestCollectFlagValues(t *testing.T) {
	t.Parallel()

	params := []grovefile.Parameter{
		{Name: "tag", Type: grovefile.ParamString, Named: true, Default: defVal(grovefile.StringValue("latest"))},
		{Name: "release", Type: grovefile.ParamBool, Named: true, Default: defVal(grovefile.BoolValue(false))},
		{Name: "replicas", Type: grovefile.ParamNumber, Named: true, Default: defVal(grovefile.NumberValue(1))},
		{Name: "targets", Type: grovefile.ParamArray, Named: true, Default: defVal(grovefile.ArrayValue("linux"))},
		{Name: "env", Type: grovefile.ParamString},
	}

	cmd := &cobra.Command{Use: "probe"}
	for _, p := range namedParams(params) {
		registerParamFlag(cmd, p)
	}
	for flag, value := range map[string]string{
		"release":  "true",
		"replicas": "3.0",
		"targets":  "linux,darwin",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("set --%s: %v", flag, err)
		}
	}

	got, err := collectFlagValues(cmd, params)
	if err != nil {
		t.Fatalf("collectFlagValues() error = %v", err)
	}

	if _, present := got["tag"]; present {
		t.Errorf("args[tag] = %q, want absent for unchanged flag", got["tag"])
	}
	if got["release"] != "true" {
		t.Errorf("args[release] = %q, want %q", got["release"], "true")
	}
	if got["replicas"] != "3" {
		t.Errorf("args[replicas] = %q, want %q", got["replicas"], "3")
	}
	if got["targets"] != "linux,darwin" {
		t.Errorf("args[targets] = %q, want %q", got["targets"], "linux,darwin")
	}
}

// ---------------------------------------------------------------------------
// Early --file scan tests
// ---------------------------------------------------------------------------

func TestEarlyManifestFlag(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	tests := []struct {
		name     string
		args     []string
		expected string
		found    bool
	}{
		{
			name:     "long flag with space",
			args:     []string{"grove", "--file", "tasks.grove", "run", "build"},
			expected: "tasks.grove",
			found:    true,
		},
		{
			name:     "long flag with equals",
			args:     []string{"grove", "--file=tasks.grove", "list"},
			expected: "tasks.grove",
			found:    true,
		},
		{
			name:     "short flag with space",
			args:     []string{"grove", "run", "-f", "ci.grove", "build"},
			expected: "ci.grove",
			found:    true,
		},
		{
			name:     "short flag with equals",
			args:     []string{"grove", "-f=ci.grove", "check"},
			expected: "ci.grove",
			found:    true,
		},
		{
			name:  "no flag",
			args:  []string{"grove", "run", "build"},
			found: false,
		},
		{
			name:  "dangling flag without value",
			args:  []string{"grove", "run", "--file"},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			got, found := earlyManifestFlag()
			if found != tt.found {
				t.Fatalf("earlyManifestFlag() found = %v, want %v", found, tt.found)
			}
			if got != tt.expected {
				t.Errorf("earlyManifestFlag() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Task command construction tests
// ---------------------------------------------------------------------------

func TestNewTaskCommand(t *testing.T) {
	t.Parallel()

	man, err := grovefile.NewParser().Parse(`deploy(env: str, !tag|g: str = "latest"):
    desc: Deploy the service
    script: echo {{env}}
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := man.Lookup("deploy")
	if err != nil {
		t.Fatalf("lookup deploy: %v", err)
	}

	taskCmd := newTaskCommand(c)
	if taskCmd.Use != "deploy <env>" {
		t.Errorf("Use = %q, want %q", taskCmd.Use, "deploy <env>")
	}
	if taskCmd.Short != "Deploy the service" {
		t.Errorf("Short = %q, want %q", taskCmd.Short, "Deploy the service")
	}
	if taskCmd.Flags().Lookup("tag") == nil {
		t.Error("named parameter tag should register a flag")
	}
	if taskCmd.Flags().ShorthandLookup("g") == nil {
		t.Error("alias g should register as shorthand")
	}
	if err := taskCmd.Args(taskCmd, []string{}); err == nil {
		t.Error("validator should reject a missing required positional")
	}
	if err := taskCmd.Args(taskCmd, []string{"prod"}); err != nil {
		t.Errorf("validator rejected a valid invocation: %v", err)
	}
}
