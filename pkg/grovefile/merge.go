// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"path/filepath"
	"strings"
)

// replaceCategory lists directive kinds where a later definition fully
// replaces every earlier entry of the same kind. Validate accumulates
// instead (every rule must pass), env merges per key, and the if/elif/else
// chain replaces as one unit.
var replaceCategory = map[DirectiveKey]bool{
	DirDesc: true, DirCwd: true, DirScript: true, DirLogs: true,
	DirDepends: true, DirEnvFile: true, DirBefore: true, DirAfter: true,
	DirFallback: true, DirFinally: true, DirPrivileged: true,
	DirRequireConfirm: true, DirWatch: true, DirShell: true,
}

// MergeCommands folds same-name sibling definitions into one command
// each, preserving first-occurrence order and recursing into children.
// Multiple definitions of a path usually come from include expansion;
// the later definition wins per the category policy on replaceCategory.
//
// Before folding, file-relative paths in cwd, env_file, and logs
// directives are rewritten absolute against their own command's source
// file, so the merged command behaves the same no matter which included
// file contributed which directive.
func MergeCommands(cmds []*Command) []*Command {
	for _, c := range cmds {
		absolutizePaths(c)
	}
	merged := mergeSiblings(cmds)
	for _, c := range merged {
		c.parent = nil
		rewireChildren(c)
	}
	return merged
}

// Merge folds duplicate command definitions throughout the manifest.
func (m *Manifest) Merge() {
	m.Commands = MergeCommands(m.Commands)
	m.rewire()
}

func mergeSiblings(cmds []*Command) []*Command {
	var order []string
	byName := map[string][]*Command{}
	for _, c := range cmds {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = append(byName[c.Name], c)
	}
	out := make([]*Command, 0, len(order))
	for _, name := range order {
		defs := byName[name]
		merged := defs[0]
		for _, next := range defs[1:] {
			merged = mergePair(merged, next)
		}
		if merged == defs[0] {
			clone := *merged
			merged = &clone
		}
		merged.Children = mergeSiblings(merged.Children)
		out = append(out, merged)
	}
	return out
}

// mergePair folds one later definition into an earlier one, returning a
// fresh node. The first occurrence keeps naming rights: source file and
// header line stay with the base.
func mergePair(base, override *Command) *Command {
	out := &Command{
		Name:       base.Name,
		SourceFile: base.SourceFile,
		Line:       base.Line,
	}
	if len(override.Params) > 0 {
		out.Params = override.Params
	} else {
		out.Params = base.Params
	}
	out.Directives = mergeDirectives(base.Directives, override.Directives)
	out.Vars = append(append([]Assignment{}, base.Vars...), override.Vars...)
	out.Consts = append(append([]Assignment{}, base.Consts...), override.Consts...)
	out.Children = append(append([]*Command{}, base.Children...), override.Children...)
	return out
}

func isCondition(key DirectiveKey) bool {
	return key == DirIf || key == DirElif || key == DirElse
}

// mergeDirectives applies the per-category policy. Env entries overridden
// by key keep their base position; everything the override adds goes to
// the end in its own order.
func mergeDirectives(base, override []Directive) []Directive {
	overrideHas := map[DirectiveKey]bool{}
	overrideEnv := map[string]Directive{}
	overrideCond := false
	for _, d := range override {
		if isCondition(d.Key) {
			overrideCond = true
			continue
		}
		overrideHas[d.Key] = true
		if d.Key == DirEnv {
			overrideEnv[d.EnvName] = d
		}
	}

	out := make([]Directive, 0, len(base)+len(override))
	spliced := map[string]bool{}
	for _, d := range base {
		switch {
		case d.Key == DirEnv:
			if o, ok := overrideEnv[d.EnvName]; ok {
				out = append(out, o)
				spliced[d.EnvName] = true
			} else {
				out = append(out, d)
			}
		case isCondition(d.Key):
			if !overrideCond {
				out = append(out, d)
			}
		case d.Key == DirValidate:
			out = append(out, d)
		case replaceCategory[d.Key]:
			if !overrideHas[d.Key] {
				out = append(out, d)
			}
		default:
			out = append(out, d)
		}
	}
	for _, d := range override {
		if d.Key == DirEnv && spliced[d.EnvName] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// absolutizePaths rewrites relative path-valued directives against the
// directory of the command's source file. Values still carrying template
// or substitution markers are left for later resolution.
func absolutizePaths(c *Command) {
	dir := ""
	if c.SourceFile != "" {
		dir = filepath.Dir(c.SourceFile)
	}
	for i := range c.Directives {
		d := &c.Directives[i]
		switch d.Key {
		case DirCwd, DirEnvFile, DirLogs:
			d.Value = absolutize(dir, d.Value)
		}
	}
	for _, ch := range c.Children {
		absolutizePaths(ch)
	}
}

func absolutize(dir, path string) string {
	if dir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.Contains(path, "{{") || strings.Contains(path, "$(") {
		return path
	}
	return filepath.Join(dir, path)
}

func rewireChildren(c *Command) {
	for _, ch := range c.Children {
		ch.parent = c
		rewireChildren(ch)
	}
}
