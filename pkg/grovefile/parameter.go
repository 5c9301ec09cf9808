// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"errors"
	"fmt"
)

// Parameter type constants, matching the type names written in manifests.
const (
	ParamString ParamType = "str"
	ParamBool   ParamType = "bool"
	ParamNumber ParamType = "num"
	ParamArray  ParamType = "arr"
)

// Parameter kind constants.
const (
	// ParamNormal is a regular typed parameter.
	ParamNormal ParamKind = iota
	// ParamWildcard captures trailing positional arguments. Wildcards are
	// untyped and carry no default.
	ParamWildcard
)

// WildcardName is the binding key of an anonymous wildcard parameter.
const WildcardName = "*"

// ErrInvalidParameter is the sentinel error wrapped by InvalidParameterError.
var ErrInvalidParameter = errors.New("invalid parameter")

type (
	// ParamType is the declared type of a normal parameter.
	ParamType string

	// ParamKind discriminates normal parameters from wildcards.
	ParamKind int

	// Parameter is one entry of a command or function signature.
	Parameter struct {
		// Name is the parameter identifier. For an anonymous wildcard (*)
		// the name is "*".
		Name string
		// Alias is an optional one-character short form, or "".
		Alias string
		// Type is the declared type; empty for wildcards.
		Type ParamType
		// Default is the optional default value; nil means required.
		Default *Value
		// Named marks a parameter that must be passed by name (flag-style)
		// rather than positionally. Written with a leading '!' in manifests.
		Named bool
		// Kind selects between normal and wildcard parameters.
		Kind ParamKind
		// Capture is the wildcard's capture name, or "" for an anonymous
		// wildcard.
		Capture string
		// Count is the wildcard's fixed arity; 0 means "zero or more".
		// A counted wildcard requires exactly Count trailing values.
		Count int
	}

	// InvalidParameterError is returned when a parameter declaration breaks
	// a signature invariant.
	InvalidParameterError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidParameter so callers can use errors.Is.
func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// IsWildcard reports whether the parameter is a wildcard.
func (p Parameter) IsWildcard() bool { return p.Kind == ParamWildcard }

// Key returns the name arguments are bound under: the capture name for a
// named wildcard, WildcardName for an anonymous one, and Name otherwise.
func (p Parameter) Key() string {
	if p.Kind == ParamWildcard {
		if p.Capture != "" {
			return p.Capture
		}
		return WildcardName
	}
	return p.Name
}

// ValidateSignature enforces the signature invariants over an ordered
// parameter list: wildcards carry no type or default, a counted wildcard's
// count is at least 1, and two wildcards are never adjacent.
func ValidateSignature(params []Parameter) error {
	prevWildcard := false
	for i := range params {
		p := &params[i]
		if p.Kind != ParamWildcard {
			prevWildcard = false
			continue
		}
		if p.Type != "" || p.Default != nil {
			return &InvalidParameterError{Name: p.Key(), Reason: "a wildcard takes no type or default"}
		}
		if p.Count < 0 {
			return &InvalidParameterError{Name: p.Key(), Reason: "wildcard count must be at least 1"}
		}
		if prevWildcard {
			return &InvalidParameterError{Name: p.Key(), Reason: "two wildcards cannot be adjacent"}
		}
		prevWildcard = true
	}
	return nil
}

// validParamType reports whether s is one of the declared parameter types.
func validParamType(s string) bool {
	switch ParamType(s) {
	case ParamString, ParamBool, ParamNumber, ParamArray:
		return true
	default:
		return false
	}
}
