// SPDX-License-Identifier: MPL-2.0

package grovefile

import (
	"errors"
	"fmt"
)

// Structural parse failures. Every error the parser returns wraps exactly
// one of these sentinels inside a ParseError carrying file and line
// context, so callers can branch with errors.Is.
var (
	// ErrUnexpectedEOF indicates input that ended inside an unfinished
	// construct, such as an unbalanced signature or an open block.
	ErrUnexpectedEOF = errors.New("unexpected end of file")

	// ErrSyntax indicates a malformed line: an unknown directive key, a
	// bad assignment, an illegal parameter shape, a redefined constant.
	ErrSyntax = errors.New("invalid syntax")

	// ErrIndent indicates indentation that is not a whole number of
	// 4-space units, or a tab in leading whitespace.
	ErrIndent = errors.New("invalid indentation")

	// ErrDeprecatedSyntax indicates a line written in the retired
	// prefix-marker form. These lines hard-fail rather than degrade.
	ErrDeprecatedSyntax = errors.New("deprecated syntax")
)

// ParseError decorates a structural failure with its source position.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
