// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// preview writes the structured no-run rendition of an invocation: path,
// resolved arguments, working directory, manifest-assigned environment
// with hidden values masked, and the script text. Dry-run substitutes it
// for the script; verbose prints it before running.
func (x *execution) preview(w io.Writer, header, script string) {
	fmt.Fprintf(w, "%s %s\n", header, x.path)
	if len(x.args) > 0 {
		pairs := make([]string, 0, len(x.args))
		for _, k := range slices.Sorted(maps.Keys(x.args)) {
			pairs = append(pairs, k+"="+x.args[k])
		}
		fmt.Fprintf(w, "args: %s\n", strings.Join(pairs, ", "))
	}
	if x.cwd != "" {
		fmt.Fprintf(w, "cwd: %s\n", x.cwd)
	}
	if vars := x.previewEnv(); len(vars) > 0 {
		fmt.Fprintf(w, "env: %s\n", strings.Join(vars, ", "))
	}
	fmt.Fprintln(w, "script:")
	for _, line := range strings.Split(strings.TrimRight(script, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// previewEnv lists the manifest-assigned environment entries in
// assignment order, masking hidden values. The call-stack guard is
// implementation plumbing and is not shown.
func (x *execution) previewEnv() []string {
	var out []string
	for _, name := range x.env.assigned {
		if name == CallStackVar {
			continue
		}
		if x.env.hidden[name] {
			out = append(out, name+"=(hidden)")
			continue
		}
		out = append(out, name+"="+x.env.vars[name])
	}
	return out
}
