// SPDX-License-Identifier: MPL-2.0

package template

import (
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/grovecli/grove/pkg/grovefile"
)

// ErrorMessageName is the builtin populated with the failing script's
// error text while a fallback hook runs.
const ErrorMessageName = "SYSTEM_ERROR_MESSAGE"

// now is a seam so tests can pin the clock.
var now = time.Now

type (
	// FunctionResolver turns an inline {{ name(args) }} call into its
	// replacement text. The boolean result is false when the name does
	// not resolve to a function; the span is then left verbatim.
	FunctionResolver func(call grovefile.Call) (string, bool, error)
)

// Process substitutes every {{...}} placeholder in text against the
// scope. Unmapped names and spans that look like function calls are left
// verbatim; ProcessFunctionCalls owns the latter.
func Process(text string, scope *Scope) (string, error) {
	return walkSpans(text, func(inner string) (string, bool, error) {
		if strings.Contains(inner, "(") {
			return "", false, nil
		}
		return substitute(inner, scope)
	})
}

// ProcessFunctionCalls rewrites every {{ name(args) }} span through the
// resolver. Spans the resolver does not recognize stay verbatim.
func ProcessFunctionCalls(text string, resolve FunctionResolver) (string, error) {
	if resolve == nil {
		return text, nil
	}
	return walkSpans(text, func(inner string) (string, bool, error) {
		if !strings.Contains(inner, "(") {
			return "", false, nil
		}
		call, err := grovefile.ParseCall(inner)
		if err != nil {
			return "", false, nil
		}
		return resolve(call)
	})
}

// ExpandWildcard replaces $* with the anonymous wildcard argument. Text
// without a wildcard binding is returned unchanged so the shell still
// sees its own $* semantics.
func ExpandWildcard(text string, scope *Scope) (string, error) {
	if !strings.Contains(text, "$*") || !scope.Has(grovefile.WildcardName) {
		return text, nil
	}
	v, _, err := scope.Lookup(grovefile.WildcardName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(text, "$*", v), nil
}

// walkSpans rewrites each {{...}} span through fn. A false second result
// keeps the span as written.
func walkSpans(text string, fn func(inner string) (string, bool, error)) (string, error) {
	var b strings.Builder
	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		end := strings.Index(text[start:], "}}")
		if end < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		end += start
		b.WriteString(text[:start])
		span := text[start : end+2]
		out, handled, err := fn(strings.TrimSpace(text[start+2 : end]))
		if err != nil {
			return "", err
		}
		if handled {
			b.WriteString(out)
		} else {
			b.WriteString(span)
		}
		text = text[end+2:]
	}
}

// substitute resolves one name[|modifier] span body.
func substitute(inner string, scope *Scope) (string, bool, error) {
	name, modifier, hasModifier := strings.Cut(inner, "|")
	name = strings.TrimSpace(name)

	val, bound, err := scope.Lookup(name)
	if err != nil {
		return "", true, err
	}
	if !bound {
		if builtin, ok := resolveBuiltin(name, scope); ok {
			return builtin, true, nil
		}
		return "", false, nil
	}
	if !hasModifier {
		// Flag-style values collapse to a plain boolean in bare form.
		if strings.HasPrefix(val, "--") {
			return "true", true, nil
		}
		return val, true, nil
	}
	return applyModifier(name, val, strings.TrimSpace(modifier)), true, nil
}

// applyModifier implements copy, sep:"X", and rep:"A"=>"B". An unknown
// modifier falls back to the raw value.
func applyModifier(name, val, modifier string) string {
	kind, arg, _ := strings.Cut(modifier, ":")
	switch kind {
	case "copy":
		switch val {
		case "true":
			return "--" + name
		case "false":
			return ""
		default:
			return val
		}
	case "sep":
		sep, ok := unquoteModifierArg(arg)
		if !ok {
			return val
		}
		return strings.ReplaceAll(val, " ", sep)
	case "rep":
		from, to, ok := strings.Cut(arg, "=>")
		if !ok {
			return val
		}
		a, okA := unquoteModifierArg(strings.TrimSpace(from))
		b, okB := unquoteModifierArg(strings.TrimSpace(to))
		if !okA || !okB {
			return val
		}
		return strings.ReplaceAll(val, a, b)
	default:
		return val
	}
}

func unquoteModifierArg(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// resolveBuiltin serves now, user, and the fallback error message. A
// builtin only applies when the scope does not shadow its name.
func resolveBuiltin(name string, scope *Scope) (string, bool) {
	switch name {
	case "now":
		return now().Format(time.RFC3339), true
	case "user":
		return currentUser(), true
	case ErrorMessageName:
		if scope.errorMessage != nil {
			return *scope.errorMessage, true
		}
		return "", false
	default:
		return "", false
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}
