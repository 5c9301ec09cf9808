// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"maps"
	"slices"
	"strings"
)

// CallStackVar is the environment variable carrying the comma-joined
// chain of command paths across grove processes. It is read before a
// command runs and extended in every child environment, so a script that
// re-invokes grove still trips the cycle check.
const CallStackVar = "GROVE_CALL_STACK"

// guard tracks the chain of command paths above the current execution.
// It is immutable: push returns a copy, so parallel dependency branches
// never see each other's descent.
type guard struct {
	// inherited holds the paths carried in from a parent grove process.
	inherited []string
	// chain holds the in-process call chain, outermost first.
	chain []string
	// visited indexes chain for O(1) checks.
	visited map[string]bool
}

// newGuard builds the root guard of one Execute call from the inherited
// call-stack variable value.
func newGuard(stackValue string) *guard {
	g := &guard{visited: make(map[string]bool)}
	for _, p := range strings.Split(stackValue, ",") {
		if p = strings.TrimSpace(p); p != "" {
			g.inherited = append(g.inherited, p)
		}
	}
	return g
}

// check fails when path already appears in the chain, naming the cycle.
func (g *guard) check(path string) error {
	if g.visited[path] || slices.Contains(g.inherited, path) {
		return &CycleError{Stack: g.full(), Path: path}
	}
	return nil
}

// push returns a new guard with path appended to the chain.
func (g *guard) push(path string) *guard {
	next := &guard{
		inherited: g.inherited,
		chain:     append(slices.Clone(g.chain), path),
		visited:   maps.Clone(g.visited),
	}
	next.visited[path] = true
	return next
}

// full returns the complete chain, inherited paths first.
func (g *guard) full() []string {
	return append(slices.Clone(g.inherited), g.chain...)
}

// stackValue renders the chain for the child environment.
func (g *guard) stackValue() string {
	return strings.Join(g.full(), ",")
}
