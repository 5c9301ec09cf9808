// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"strconv"
	"strings"
)

// Value kind constants.
const (
	ValueString ValueKind = iota
	ValueBool
	ValueNumber
	ValueArray
	ValueDynamic
)

type (
	// ValueKind discriminates the variants of a Value.
	ValueKind int

	// Value is a typed manifest literal. Exactly one variant is populated,
	// selected by Kind. Values are immutable after construction; treat the
	// Arr slice as read-only.
	//
	// A Dynamic value holds an unevaluated shell expression. It is resolved
	// lazily through an Evaluator supplied by the caller at render time, so
	// parsing a manifest never executes a Dynamic expression.
	Value struct {
		Kind ValueKind
		Str  string
		Bool bool
		Num  float64
		Arr  []string
		// Expr is the shell expression of a Dynamic value, without the
		// surrounding $( ) markers.
		Expr string
	}

	// Evaluator resolves a Dynamic value's shell expression to its output.
	// Implementations return the trimmed stdout of the expression and an
	// error when the expression exits non-zero.
	Evaluator func(expr string) (string, error)
)

// StringValue constructs a String value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// BoolValue constructs a Bool value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// NumberValue constructs a Number value.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }

// ArrayValue constructs an Array value from ordered elements.
func ArrayValue(elems ...string) Value { return Value{Kind: ValueArray, Arr: elems} }

// DynamicValue constructs a Dynamic value from an unevaluated shell expression.
func DynamicValue(expr string) Value { return Value{Kind: ValueDynamic, Expr: expr} }

// Render returns the canonical string form of the value: booleans as
// "true"/"false", numbers without a trailing ".0", arrays space-joined.
// Dynamic values are resolved through eval; a nil eval renders the raw
// expression in its $( ) form so the caller can still see what was meant.
func (v Value) Render(eval Evaluator) (string, error) {
	switch v.Kind {
	case ValueBool:
		return strconv.FormatBool(v.Bool), nil
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), nil
	case ValueArray:
		return strings.Join(v.Arr, " "), nil
	case ValueDynamic:
		if eval == nil {
			return "$(" + v.Expr + ")", nil
		}
		return eval(v.Expr)
	default:
		return v.Str, nil
	}
}

// Equal reports structural equality between two values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueBool:
		return v.Bool == other.Bool
	case ValueNumber:
		return v.Num == other.Num
	case ValueArray:
		if len(v.Arr) != len(other.Arr) {
			return false
		}
		for i := range v.Arr {
			if v.Arr[i] != other.Arr[i] {
				return false
			}
		}
		return true
	case ValueDynamic:
		return v.Expr == other.Expr
	default:
		return v.Str == other.Str
	}
}
