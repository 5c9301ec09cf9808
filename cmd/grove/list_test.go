// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grovecli/grove/pkg/grovefile"
)

func listingFixture(t *testing.T) *grovefile.Manifest {
	t.Helper()
	man, err := grovefile.NewParser().Parse(`build(target: str = "all"):
    desc: Build the project
    script: echo build

test():
    desc: Test suites
    unit():
        desc: Run unit tests
        script: echo unit

release():
    privileged: true
    script: echo release
`)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	man.Path = "/work/grovefile"
	return man
}

// ---------------------------------------------------------------------------
// Machine-readable listing tests
// ---------------------------------------------------------------------------

func TestBuildListing(t *testing.T) {
	t.Parallel()

	listing := buildListing(listingFixture(t))
	if listing.Manifest != "/work/grovefile" {
		t.Errorf("Manifest = %q, want %q", listing.Manifest, "/work/grovefile")
	}
	if len(listing.Commands) != 3 {
		t.Fatalf("top-level commands = %d, want 3", len(listing.Commands))
	}

	build := listing.Commands[0]
	if build.Path != "build" || !build.Runnable {
		t.Errorf("build entry = %+v, want runnable path build", build)
	}
	if build.Usage != "build [target]" {
		t.Errorf("build usage = %q, want %q", build.Usage, "build [target]")
	}
	if build.Description != "Build the project" {
		t.Errorf("build description = %q, want %q", build.Description, "Build the project")
	}

	test := listing.Commands[1]
	if test.Runnable {
		t.Error("group test should not be runnable")
	}
	if test.Usage != "" {
		t.Errorf("group usage = %q, want empty", test.Usage)
	}
	if len(test.Commands) != 1 || test.Commands[0].Path != "test:unit" {
		t.Errorf("test children = %+v, want [test:unit]", test.Commands)
	}
	if !test.Commands[0].Runnable {
		t.Error("test:unit should be runnable")
	}
}

// ---------------------------------------------------------------------------
// Text summary tests
// ---------------------------------------------------------------------------

func TestPrintCommandSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printCommandSummary(&buf, listingFixture(t))
	out := buf.String()

	for _, want := range []string{
		"Available Commands",
		"build",
		"Build the project",
		"test:",
		"test:unit",
		"Run unit tests",
		"(privileged)",
		"3 runnable command(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintCommandSummary_EmptyManifest(t *testing.T) {
	t.Parallel()

	man := &grovefile.Manifest{Path: "/work/grovefile"}
	var buf bytes.Buffer
	printCommandSummary(&buf, man)

	if !strings.Contains(buf.String(), "No commands defined in /work/grovefile.") {
		t.Errorf("unexpected empty-manifest output: %q", buf.String())
	}
}

func TestPrintCommandSummary_Verbose(t *testing.T) {
	originalVerbose := verbose
	verbose = true
	t.Cleanup(func() { verbose = originalVerbose })

	man := listingFixture(t)
	man.Commands[0].SourceFile = "/work/common.grove"

	var buf bytes.Buffer
	printCommandSummary(&buf, man)
	out := buf.String()

	if !strings.Contains(out, "Manifest") {
		t.Errorf("verbose summary missing manifest header:\n%s", out)
	}
	if !strings.Contains(out, "/work/grovefile") {
		t.Errorf("verbose summary missing manifest path:\n%s", out)
	}
	if !strings.Contains(out, "/work/common.grove") {
		t.Errorf("verbose summary missing included source:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// Included source tests
// ---------------------------------------------------------------------------

func TestIncludedSources(t *testing.T) {
	t.Parallel()

	man := listingFixture(t)
	man.Commands[0].SourceFile = "/work/grovefile"
	man.Commands[1].SourceFile = "/work/common.grove"
	man.Commands[1].Children[0].SourceFile = "/work/common.grove"
	man.Commands[2].SourceFile = "/work/extra.grove"

	got := includedSources(man)
	want := []string{"/work/common.grove", "/work/extra.grove"}
	if len(got) != len(want) {
		t.Fatalf("includedSources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("includedSources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
