// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"sort"
	"strconv"
	"strings"
)

// Source renders the value as a parseable manifest literal. Strings are
// always quoted so that "true", "42", and friends survive a round trip
// with their kinds intact.
func (v Value) Source() string {
	switch v.Kind {
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueArray:
		parts := make([]string, len(v.Arr))
		for i, e := range v.Arr {
			parts[i] = quoteLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueDynamic:
		return "$(" + v.Expr + ")"
	default:
		return quoteLiteral(v.Str)
	}
}

func quoteLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// Serialize renders the manifest back to parseable text. Reparsing the
// output yields a structurally equal tree; source positions and file
// attribution are not preserved.
func (m *Manifest) Serialize() string {
	var b strings.Builder
	for _, d := range m.Env {
		writeEnvLine(&b, d, 0)
	}
	for _, a := range m.Consts {
		writeAssignment(&b, a, 0)
	}
	for _, a := range m.Vars {
		writeAssignment(&b, a, 0)
	}
	for _, name := range sortedFunctionNames(m.Functions) {
		writeFunction(&b, m.Functions[name])
	}
	for _, c := range m.Commands {
		writeCommandSource(&b, c, 0)
	}
	return b.String()
}

// SerializeCommand renders one command subtree, used when an include
// pulls a selection of commands out of another manifest.
func SerializeCommand(c *Command) string {
	var b strings.Builder
	writeCommandSource(&b, c, 0)
	return b.String()
}

func sortedFunctionNames(fns map[string]*Function) []string {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pad(depth int) string {
	return strings.Repeat(" ", depth*indentWidth)
}

func writeAssignment(b *strings.Builder, a Assignment, depth int) {
	kw := "var"
	if a.Const {
		kw = "const"
	}
	b.WriteString(pad(depth) + kw + " " + a.Name + " = " + a.Value.Source() + "\n")
}

func writeEnvLine(b *strings.Builder, d Directive, depth int) {
	key := "env"
	if d.Hide {
		key = "env.hide"
	}
	if d.Key == DirEnvFile {
		b.WriteString(pad(depth) + key + " " + d.Value + "\n")
		return
	}
	b.WriteString(pad(depth) + key + " " + d.EnvName + " = " + d.Value + "\n")
}

func writeFunction(b *strings.Builder, fn *Function) {
	b.WriteString("function " + fn.Name + "(" + paramListSource(fn.Params) + "):\n")
	for _, a := range fn.Vars {
		writeAssignment(b, a, 1)
	}
	for _, line := range strings.Split(fn.Body, "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(pad(1) + line + "\n")
	}
}

func writeCommandSource(b *strings.Builder, c *Command, depth int) {
	b.WriteString(pad(depth) + c.Name + "(" + paramListSource(c.Params) + "):\n")
	inner := depth + 1
	for _, a := range c.Consts {
		writeAssignment(b, a, inner)
	}
	for _, a := range c.Vars {
		writeAssignment(b, a, inner)
	}
	for _, d := range c.Directives {
		writeDirective(b, d, inner)
	}
	for _, ch := range c.Children {
		writeCommandSource(b, ch, inner)
	}
}

func writeDirective(b *strings.Builder, d Directive, depth int) {
	if d.Key == DirEnv || d.Key == DirEnvFile {
		writeEnvLine(b, d, depth)
		return
	}
	key := string(d.Key)
	if d.OS != "" {
		key += "." + d.OS
	}
	if d.Hide {
		key += ".hide"
	}
	if d.Parallel {
		key += ".parallel"
	}
	if d.Format != "" {
		key += "." + d.Format
	}
	if strings.Contains(d.Value, "\n") || d.Value == "|" {
		b.WriteString(pad(depth) + key + ": |\n")
		for _, line := range strings.Split(d.Value, "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(pad(depth+1) + line + "\n")
		}
		return
	}
	if d.Value == "" {
		b.WriteString(pad(depth) + key + ":\n")
		return
	}
	b.WriteString(pad(depth) + key + ": " + d.Value + "\n")
}

func paramListSource(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = paramSource(p)
	}
	return strings.Join(parts, ", ")
}

func paramSource(p Parameter) string {
	if p.Kind == ParamWildcard {
		s := "*" + p.Capture
		if p.Count > 0 {
			s += "[" + strconv.Itoa(p.Count) + "]"
		}
		return s
	}
	var b strings.Builder
	if p.Named {
		b.WriteString("!")
	}
	b.WriteString(p.Name)
	if p.Alias != "" {
		b.WriteString("|" + p.Alias)
	}
	typ := p.Type
	if typ == "" {
		typ = ParamString
	}
	b.WriteString(": " + string(typ))
	if p.Default != nil {
		b.WriteString(" = " + p.Default.Source())
	}
	return b.String()
}
