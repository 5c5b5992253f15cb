package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies semantic errors.
type ErrorKind string

const (
	NameError ErrorKind = "NameError"
	TypeError ErrorKind = "TypeError"
)

// SemanticError is a user-facing violation found by the analyzer.
type SemanticError struct {
	Kind ErrorKind
	Msg  string
	Line int
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s at line %d.", e.Kind, e.Msg, e.Line)
}

// SyntaxError is a malformed program reported by the lexer or parser.
type SyntaxError struct {
	Msg    string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s at line %d.", e.Msg, e.Line)
}

// InternalError signals a compiler defect: an AST shape the generator
// cannot lower after analysis accepted it.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "InternalError: " + e.Msg
}

// LineOf returns the source line carried by a compiler error, or 0.
func LineOf(err error) int {
	var se *SemanticError
	if errors.As(err, &se) {
		return se.Line
	}
	var pe *SyntaxError
	if errors.As(err, &pe) {
		return pe.Line
	}
	return 0
}

// IsUserError reports whether err is a diagnostic about the program
// rather than a compiler defect.
func IsUserError(err error) bool {
	var se *SemanticError
	var pe *SyntaxError
	return errors.As(err, &se) || errors.As(err, &pe)
}
