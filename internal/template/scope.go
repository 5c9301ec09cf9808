// SPDX-License-Identifier: MPL-2.0

// Package template implements placeholder substitution over hook and
// script text: layered {{name}} lookups, value modifiers, wildcard
// expansion, and inline function-call rewriting.
package template

import (
	"fmt"

	"github.com/grovecli/grove/pkg/grovefile"
)

type (
	// Layers bundles every binding source of one substitution pass,
	// lowest priority first. Build folds them into a Scope:
	//
	//	 1. global constants
	//	 2. global variables
	//	 3. parent constants
	//	 4. parent variables
	//	 5. local constants
	//	 6. local variables
	//	 7. parent arguments (only names the arguments lack)
	//	 8. arguments
	//
	// Each layer overrides same-named entries below it.
	Layers struct {
		GlobalConsts []grovefile.Assignment
		GlobalVars   []grovefile.Assignment
		ParentConsts []grovefile.Assignment
		ParentVars   []grovefile.Assignment
		LocalConsts  []grovefile.Assignment
		LocalVars    []grovefile.Assignment
		Args         map[string]string
		ParentArgs   map[string]string
	}

	// Scope is the folded name table of one execution. Dynamic values
	// stay unevaluated until their first lookup; the result is cached so
	// a shell expression runs at most once per scope.
	Scope struct {
		entries map[string]*scopeEntry
		eval    grovefile.Evaluator
		// errorMessage backs the failure builtin while a fallback hook
		// runs; nil outside fallback execution.
		errorMessage *string
	}

	scopeEntry struct {
		value    grovefile.Value
		rendered string
		done     bool
	}
)

// Build folds layers into a Scope. Dynamic assignment values are
// resolved through eval on first use.
func Build(layers Layers, eval grovefile.Evaluator) *Scope {
	s := &Scope{entries: map[string]*scopeEntry{}, eval: eval}
	for _, batch := range [][]grovefile.Assignment{
		layers.GlobalConsts,
		layers.GlobalVars,
		layers.ParentConsts,
		layers.ParentVars,
		layers.LocalConsts,
		layers.LocalVars,
	} {
		for _, a := range batch {
			s.entries[a.Name] = &scopeEntry{value: a.Value}
		}
	}
	for name, v := range layers.ParentArgs {
		if _, shadowed := layers.Args[name]; shadowed {
			continue
		}
		s.setString(name, v)
	}
	for name, v := range layers.Args {
		s.setString(name, v)
	}
	return s
}

func (s *Scope) setString(name, v string) {
	s.entries[name] = &scopeEntry{
		value:    grovefile.StringValue(v),
		rendered: v,
		done:     true,
	}
}

// Set binds name to a plain string at the highest priority.
func (s *Scope) Set(name, v string) { s.setString(name, v) }

// SetErrorMessage populates the failure builtin for fallback execution.
func (s *Scope) SetErrorMessage(msg string) { s.errorMessage = &msg }

// Lookup resolves name to its rendered string form. The boolean result
// is false when the scope has no binding for name.
func (s *Scope) Lookup(name string) (string, bool, error) {
	e, ok := s.entries[name]
	if !ok {
		return "", false, nil
	}
	if !e.done {
		rendered, err := e.value.Render(s.eval)
		if err != nil {
			return "", true, fmt.Errorf("resolve %q: %w", name, err)
		}
		e.rendered = rendered
		e.done = true
	}
	return e.rendered, true, nil
}

// Has reports whether the scope binds name, without forcing resolution.
func (s *Scope) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}
