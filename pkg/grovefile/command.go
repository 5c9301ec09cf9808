// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"fmt"
	"sort"
	"strings"
)

// PathSeparator joins nested command names into a full invocation path,
// as in "test:unit".
const PathSeparator = ":"

// ManifestName is the standard file name a grove manifest is looked up
// under when no explicit path is given.
const ManifestName = "grovefile"

type (
	// Assignment is a named value bound with = (variable) or := (constant).
	// Variables carry template references resolved at expansion time;
	// constants are frozen at parse time.
	Assignment struct {
		Name  string
		Value Value
		Const bool
		// Line is the 1-based source line of the assignment.
		Line int
	}

	// Function is a reusable text template expanded inline wherever a
	// script line calls it. Parameters are positional; the body may
	// reference them as {{name}} and exit early through a return line.
	Function struct {
		Name   string
		Params []Parameter
		Body   string
		// Vars holds var lines lifted out of the body, in order.
		Vars []Assignment
		Line int
	}

	// Command is one runnable task, or a group containing nested tasks.
	// A group is a command with children; it may additionally carry its
	// own directives and be runnable itself.
	Command struct {
		// Name is the last path segment.
		Name string
		// Params is the declared signature, in order.
		Params []Parameter
		// Directives is the ordered body, duplicates included. OS
		// precedence is applied by a Resolver at execution time, after
		// merging.
		Directives []Directive
		// Vars and Consts are command-local assignments in declaration
		// order.
		Vars   []Assignment
		Consts []Assignment
		// Children holds nested commands in declaration order.
		Children []*Command
		// SourceFile is the file the command body came from. Merged
		// commands keep the file of their first occurrence.
		SourceFile string
		// Line is the 1-based line of the command header.
		Line int

		parent *Command
	}

	// Manifest is one parsed grovefile after include expansion and merging.
	Manifest struct {
		// Commands holds the top-level commands in declaration order.
		Commands []*Command
		// Vars and Consts are the global assignments.
		Vars   []Assignment
		Consts []Assignment
		// Functions maps function names to their definitions.
		Functions map[string]*Function
		// Env holds file-scope env directives applied to every command.
		Env []Directive
		// Path is the manifest file the tree was loaded from.
		Path string
	}

	// UnknownCommandError reports a lookup of a path no command declares.
	UnknownCommandError struct {
		Path string
	}
)

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Path)
}

// Path returns the full colon-joined invocation path of the command.
func (c *Command) Path() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.Path() + PathSeparator + c.Name
}

// Parent returns the enclosing group, or nil for top-level commands.
func (c *Command) Parent() *Command { return c.parent }

// IsGroup reports whether the command contains nested commands.
func (c *Command) IsGroup() bool { return len(c.Children) > 0 }

// HasScript reports whether the command declares a main script for any OS.
func (c *Command) HasScript() bool {
	for i := range c.Directives {
		if c.Directives[i].Key == DirScript {
			return true
		}
	}
	return false
}

// Runnable reports whether invoking the command directly makes sense:
// it either has a script or a dependency list to fan out to.
func (c *Command) Runnable() bool {
	if c.HasScript() {
		return true
	}
	for i := range c.Directives {
		if c.Directives[i].Key == DirDepends {
			return true
		}
	}
	return false
}

// Child returns the direct child with the given name.
func (c *Command) Child(name string) (*Command, bool) {
	for _, ch := range c.Children {
		if ch.Name == name {
			return ch, true
		}
	}
	return nil, false
}

// AddChild appends a nested command and wires its parent pointer.
func (c *Command) AddChild(ch *Command) {
	ch.parent = c
	c.Children = append(c.Children, ch)
}

// LocalLookup finds a command-local assignment by name. Constants shadow
// nothing here; the template scope chain handles precedence.
func (c *Command) LocalLookup(name string) (*Assignment, bool) {
	for i := range c.Vars {
		if c.Vars[i].Name == name {
			return &c.Vars[i], true
		}
	}
	for i := range c.Consts {
		if c.Consts[i].Name == name {
			return &c.Consts[i], true
		}
	}
	return nil, false
}

// Lookup resolves a colon-joined path to a command.
func (m *Manifest) Lookup(path string) (*Command, error) {
	segs := strings.Split(path, PathSeparator)
	var cur *Command
	scope := m.Commands
	for _, seg := range segs {
		var next *Command
		for _, c := range scope {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil, &UnknownCommandError{Path: path}
		}
		cur = next
		scope = cur.Children
	}
	return cur, nil
}

// Walk visits every command depth-first in declaration order.
func (m *Manifest) Walk(fn func(*Command)) {
	var visit func(cmds []*Command)
	visit = func(cmds []*Command) {
		for _, c := range cmds {
			fn(c)
			visit(c.Children)
		}
	}
	visit(m.Commands)
}

// Paths returns every command path in the manifest, sorted.
func (m *Manifest) Paths() []string {
	var out []string
	m.Walk(func(c *Command) {
		out = append(out, c.Path())
	})
	sort.Strings(out)
	return out
}

// ResolveDependency resolves a depends entry relative to the command
// that declares it: a path containing ':' is root-absolute (a leading
// ':' anchors a single-segment path at the root), a bare name names a
// sibling of the declaring command.
func (m *Manifest) ResolveDependency(from *Command, path string) (*Command, error) {
	if strings.Contains(path, PathSeparator) {
		return m.Lookup(strings.TrimPrefix(path, PathSeparator))
	}
	siblings := m.Commands
	if p := from.Parent(); p != nil {
		siblings = p.Children
	}
	for _, c := range siblings {
		if c.Name == path {
			return c, nil
		}
	}
	full := path
	if p := from.Parent(); p != nil {
		full = p.Path() + PathSeparator + path
	}
	return nil, &UnknownCommandError{Path: full}
}

// GlobalLookup finds a global assignment by name.
func (m *Manifest) GlobalLookup(name string) (*Assignment, bool) {
	for i := range m.Vars {
		if m.Vars[i].Name == name {
			return &m.Vars[i], true
		}
	}
	for i := range m.Consts {
		if m.Consts[i].Name == name {
			return &m.Consts[i], true
		}
	}
	return nil, false
}

// Function returns the named function definition.
func (m *Manifest) Function(name string) (*Function, bool) {
	f, ok := m.Functions[name]
	return f, ok
}

// rewire restores parent pointers after merging rebuilt the tree.
func (m *Manifest) rewire() {
	var visit func(parent *Command, cmds []*Command)
	visit = func(parent *Command, cmds []*Command) {
		for _, c := range cmds {
			c.parent = parent
			visit(c, c.Children)
		}
	}
	visit(nil, m.Commands)
}
