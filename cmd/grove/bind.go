// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grovecli/grove/pkg/grovefile"
)

// bindInvocation binds one CLI invocation against a command signature,
// producing the flat name-to-string argument map the runtime consumes.
//
// Normal parameters fill from positionals in declaration order. Named
// parameters bind from flags only; their values arrive already reduced
// by the typed cobra flags. A wildcard captures every positional left
// after the normal parameters are filled, space-joined the way $* is
// expanded. Unbound parameters fall back to their declared default,
// rendered through eval so dynamic defaults resolve at invocation time.
func bindInvocation(params []grovefile.Parameter, positionals []string, flags map[string]string, eval grovefile.Evaluator) (map[string]string, error) {
	args := make(map[string]string, len(params))
	for name, val := range flags {
		args[name] = val
	}

	rest := positionals
	for _, p := range params {
		if p.Named || p.IsWildcard() {
			continue
		}
		if _, bound := args[p.Key()]; bound {
			continue
		}
		if len(rest) == 0 {
			break
		}
		v, err := reduceValue(p, rest[0])
		if err != nil {
			return nil, err
		}
		args[p.Key()] = v
		rest = rest[1:]
	}

	if wc := wildcardOf(params); wc != nil {
		if wc.Count > 0 && len(rest) != wc.Count {
			return nil, fmt.Errorf("wildcard %q requires exactly %d trailing values, got %d", wc.Key(), wc.Count, len(rest))
		}
		if len(rest) > 0 {
			args[wc.Key()] = strings.Join(rest, " ")
		}
		rest = nil
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("too many arguments: %d left over starting at %q", len(rest), rest[0])
	}

	for _, p := range params {
		if _, bound := args[p.Key()]; bound {
			continue
		}
		switch {
		case p.Default != nil:
			v, err := renderParamDefault(p, eval)
			if err != nil {
				return nil, fmt.Errorf("default for %q: %w", p.Key(), err)
			}
			args[p.Key()] = v
		case p.IsWildcard():
			// An uncounted wildcard given nothing stays absent; counted
			// arity was enforced above.
		case p.Named:
			return nil, fmt.Errorf("missing required flag --%s", p.Name)
		default:
			return nil, fmt.Errorf("missing argument %q", p.Key())
		}
	}
	return args, nil
}

// reduceValue validates and canonicalizes one positional value per the
// declared parameter type. Array values pass through as written: a
// single comma-joined token is already the reduced form.
func reduceValue(p grovefile.Parameter, raw string) (string, error) {
	switch p.Type {
	case grovefile.ParamBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", fmt.Errorf("argument %q: %q is not a boolean", p.Key(), raw)
		}
		return strconv.FormatBool(b), nil
	case grovefile.ParamNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", fmt.Errorf("argument %q: %q is not a number", p.Key(), raw)
		}
		return formatNumber(n), nil
	default:
		return raw, nil
	}
}

// formatNumber renders a num value without a trailing .0, the canonical
// form numbers take everywhere in the argument map.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// renderParamDefault reduces a declared default to its argument string
// form. Array defaults comma-join, matching the reduction of array
// values everywhere else in the map.
func renderParamDefault(p grovefile.Parameter, eval grovefile.Evaluator) (string, error) {
	if p.Default.Kind == grovefile.ValueArray {
		return strings.Join(p.Default.Arr, ","), nil
	}
	return p.Default.Render(eval)
}

// wildcardOf returns the signature's wildcard parameter, or nil.
func wildcardOf(params []grovefile.Parameter) *grovefile.Parameter {
	for i := range params {
		if params[i].IsWildcard() {
			return &params[i]
		}
	}
	return nil
}

// positionalParams returns the normal, positionally-bound parameters in
// declaration order.
func positionalParams(params []grovefile.Parameter) []grovefile.Parameter {
	var out []grovefile.Parameter
	for _, p := range params {
		if !p.Named && !p.IsWildcard() {
			out = append(out, p)
		}
	}
	return out
}

// namedParams returns the flag-bound parameters in declaration order.
func namedParams(params []grovefile.Parameter) []grovefile.Parameter {
	var out []grovefile.Parameter
	for _, p := range params {
		if p.Named && !p.IsWildcard() {
			out = append(out, p)
		}
	}
	return out
}
