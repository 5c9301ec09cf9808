// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSubstitution indicates a malformed or failed $(...) substitution.
var ErrSubstitution = errors.New("command substitution failed")

// SubstitutionError reports a $(...) expression that could not be expanded.
type SubstitutionError struct {
	Expr string
	Err  error
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("substitution $(%s): %v", e.Expr, e.Err)
}

func (e *SubstitutionError) Unwrap() error { return ErrSubstitution }

// ParseLiteral parses an assignment or directive value into a typed Value.
//
// Typing rules, in order:
//
//  1. A value that is exactly one $(expr) stays dynamic: the expression
//     is captured and evaluated lazily on first use.
//  2. $(expr) embedded in a larger value is expanded eagerly through eval
//     before typing.
//  3. [a, b, c] and (a, b, c) are arrays; elements are parsed as
//     scalar strings.
//  4. Quoted text is a string; double quotes process \n, \t, \\, and \".
//  5. true and false are booleans.
//  6. Text that parses as a number is a number.
//  7. Anything else is a bare string.
//
// A nil eval leaves embedded substitutions untouched, which static
// inspection (listing, checking) relies on.
func ParseLiteral(s string, eval Evaluator) (Value, error) {
	s = strings.TrimSpace(s)

	if expr, ok := wholeSubstitution(s); ok {
		return DynamicValue(expr), nil
	}

	expanded, err := ExpandSubstitutions(s, eval)
	if err != nil {
		return Value{}, err
	}
	s = expanded

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") ||
		strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return parseArray(s)
	}
	if isQuoted(s) {
		str, err := unquoteString(s)
		if err != nil {
			return Value{}, err
		}
		return StringValue(str), nil
	}
	switch s {
	case "true":
		return BoolValue(true), nil
	case "false":
		return BoolValue(false), nil
	}
	if n, ok := parseNumber(s); ok {
		return NumberValue(n), nil
	}
	return StringValue(s), nil
}

// ParseLiteralStatic parses a value without an evaluator. Embedded
// substitutions survive verbatim.
func ParseLiteralStatic(s string) (Value, error) {
	return ParseLiteral(s, nil)
}

// ExpandSubstitutions replaces every $(expr) in s with the evaluator's
// output. Nested parentheses inside an expression are balanced. A nil
// eval returns s unchanged.
func ExpandSubstitutions(s string, eval Evaluator) (string, error) {
	if eval == nil || !strings.Contains(s, "$(") {
		return s, nil
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "$(")
		if i < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		b.WriteString(s[:i])
		expr, rest, err := scanSubstitution(s[i:])
		if err != nil {
			return "", err
		}
		out, err := eval(expr)
		if err != nil {
			return "", &SubstitutionError{Expr: expr, Err: err}
		}
		b.WriteString(strings.TrimRight(out, "\n"))
		s = rest
	}
}

// wholeSubstitution reports whether s is exactly one $(expr) and returns
// the inner expression.
func wholeSubstitution(s string) (string, bool) {
	if !strings.HasPrefix(s, "$(") {
		return "", false
	}
	expr, rest, err := scanSubstitution(s)
	if err != nil || rest != "" {
		return "", false
	}
	return expr, true
}

// scanSubstitution consumes one $(expr) from the front of s, balancing
// nested parentheses, and returns the expression and the remainder.
func scanSubstitution(s string) (expr, rest string, err error) {
	depth := 0
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[2:i], s[i+1:], nil
			}
		}
	}
	return "", "", &SubstitutionError{Expr: s, Err: errors.New("unterminated $(")}
}

func parseArray(s string) (Value, error) {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return ArrayValue(), nil
	}
	var elems []string
	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "[") || strings.HasPrefix(part, "(") {
			return Value{}, fmt.Errorf("nested arrays are not supported: %q", part)
		}
		if isQuoted(part) {
			str, err := unquoteString(part)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, str)
			continue
		}
		elems = append(elems, part)
	}
	return ArrayValue(elems...), nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

// unquoteString strips the outer quotes. Double quotes process the
// escapes \n, \t, \\, and \"; single quotes keep everything literal.
func unquoteString(s string) (string, error) {
	q := s[0]
	body := s[1 : len(s)-1]
	if q == '\'' {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("trailing backslash in %s", s)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	c := s[0]
	if c != '+' && c != '-' && c != '.' && (c < '0' || c > '9') {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
