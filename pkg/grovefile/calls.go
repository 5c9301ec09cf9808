// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCall indicates a call expression that violates the call grammar.
var ErrInvalidCall = errors.New("invalid call")

// shellKeywords are words that begin shell control constructs. A script
// line starting with one of these is never treated as a command call,
// no matter what the manifest declares.
var shellKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"for": true, "while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "function": true, "select": true,
	"time": true, "coproc": true, "in": true,
}

type (
	// CallArg is one name=value argument of a call.
	CallArg struct {
		Name  string
		Value string
	}

	// Call is a parsed invocation: a colon-joined command path (or a
	// function name) plus optional named arguments.
	//
	//	build
	//	test:unit(fast=true, tags="slow, flaky")
	Call struct {
		Path string
		Args []CallArg
	}

	// Dependency is one entry of a depends list.
	Dependency struct {
		Call
	}

	// InvalidCallError reports a malformed call expression.
	InvalidCallError struct {
		Input  string
		Reason string
	}
)

func (e *InvalidCallError) Error() string {
	return fmt.Sprintf("invalid call %q: %s", e.Input, e.Reason)
}

func (e *InvalidCallError) Unwrap() error { return ErrInvalidCall }

// Arg returns the named argument value.
func (c *Call) Arg(name string) (string, bool) {
	for _, a := range c.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// String renders the call back to source form.
func (c *Call) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		if needsQuoting(a.Value) {
			parts[i] = a.Name + "=" + quote(a.Value)
		} else {
			parts[i] = a.Name + "=" + a.Value
		}
	}
	return c.Path + "(" + strings.Join(parts, ", ") + ")"
}

// ParseDependencyList parses a comma-separated depends value. Commas
// inside argument lists and quoted strings do not split entries.
func ParseDependencyList(s string) ([]Dependency, error) {
	var deps []Dependency
	for _, part := range splitTopLevel(s, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		call, err := ParseCall(part)
		if err != nil {
			return nil, err
		}
		deps = append(deps, Dependency{Call: call})
	}
	return deps, nil
}

// ParseCall parses one call expression: a command path optionally
// followed by a parenthesized name=value argument list.
func ParseCall(s string) (Call, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if !ValidCallPath(s) {
			return Call{}, &InvalidCallError{Input: s, Reason: "malformed command path"}
		}
		return Call{Path: s}, nil
	}
	path := strings.TrimSpace(s[:open])
	if !ValidCallPath(path) {
		return Call{}, &InvalidCallError{Input: s, Reason: "malformed command path"}
	}
	if !strings.HasSuffix(s, ")") {
		return Call{}, &InvalidCallError{Input: s, Reason: "missing closing parenthesis"}
	}
	args, err := parseArgList(s[open+1 : len(s)-1])
	if err != nil {
		return Call{}, &InvalidCallError{Input: s, Reason: err.Error()}
	}
	return Call{Path: path, Args: args}, nil
}

// MatchCallLine reports whether a script line is shaped like a call.
// Lines starting with shell keywords, lines with unquoted shell
// metacharacters, and lines that do not parse as a single call all
// report false; the caller then treats the line as raw shell.
func MatchCallLine(line string) (Call, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Call{}, false
	}
	head := line
	if i := strings.IndexAny(head, " \t("); i >= 0 {
		head = head[:i]
	}
	if shellKeywords[strings.ToLower(head)] {
		return Call{}, false
	}
	if hasUnquotedMeta(line) {
		return Call{}, false
	}
	call, err := ParseCall(line)
	if err != nil {
		return Call{}, false
	}
	return call, true
}

// ValidCallPath reports whether s is a well-formed colon-joined path of
// identifiers. Identifiers start with a letter or underscore and continue
// with letters, digits, hyphens, and underscores.
func ValidCallPath(s string) bool {
	// A leading separator anchors the path at the manifest root.
	s = strings.TrimPrefix(s, PathSeparator)
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, PathSeparator) {
		if !validIdent(seg) {
			return false
		}
	}
	return true
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// parseArgList parses "name=value, name=value" with quoted values.
func parseArgList(s string) ([]CallArg, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []CallArg
	for _, part := range splitTopLevel(s, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.New("empty argument")
		}
		name, raw, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("argument %q is not name=value", part)
		}
		name = strings.TrimSpace(name)
		if !validIdent(name) {
			return nil, fmt.Errorf("bad argument name %q", name)
		}
		val, err := unquoteArg(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		args = append(args, CallArg{Name: name, Value: val})
	}
	return args, nil
}

// unquoteArg strips one level of matching quotes from an argument value.
func unquoteArg(s string) (string, error) {
	if len(s) >= 2 {
		if q := s[0]; q == '"' || q == '\'' {
			if s[len(s)-1] != q {
				return "", fmt.Errorf("unterminated quote in %q", s)
			}
			return s[1 : len(s)-1], nil
		}
	}
	if strings.ContainsAny(s, `"'`) {
		return "", fmt.Errorf("stray quote in %q", s)
	}
	return s, nil
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses,
// brackets, and quoted strings.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// hasUnquotedMeta reports whether the line carries shell metacharacters
// outside quoted regions. Parentheses are exempt: they belong to the call
// grammar itself.
func hasUnquotedMeta(line string) bool {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '|', '&', ';', '<', '>', '`', '$', '*', '?', '~', '#', '\\', '{', '}':
			return true
		}
	}
	return false
}

func needsQuoting(s string) bool {
	return s == "" || strings.ContainsAny(s, " \t,()[]\"'")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
