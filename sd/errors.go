package sd

import (
	"errors"
	"fmt"
)

// ErrorKind classifies runtime faults. Collaborators use String() as a message ID.
type ErrorKind int

const (
	ErrUndefinedVariable ErrorKind = iota + 1
	ErrUndefinedFunction
	ErrTypeMismatch
	ErrDivisionByZero
	ErrArity
	ErrReadOnly
	ErrSyntax
	ErrRecursion
	ErrStepQuota
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUndefinedVariable:
		return "undefined_variable"
	case ErrUndefinedFunction:
		return "undefined_function"
	case ErrTypeMismatch:
		return "type_mismatch"
	case ErrDivisionByZero:
		return "division_by_zero"
	case ErrArity:
		return "arity_mismatch"
	case ErrReadOnly:
		return "read_only"
	case ErrSyntax:
		return "syntax"
	case ErrRecursion:
		return "recursion_limit"
	case ErrStepQuota:
		return "step_quota"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Suppressible reports whether a trailing suppression marker may catch the fault.
// Structural faults are always fatal.
func (k ErrorKind) Suppressible() bool {
	switch k {
	case ErrUndefinedVariable, ErrUndefinedFunction, ErrTypeMismatch, ErrDivisionByZero:
		return true
	default:
		return false
	}
}

// RuntimeError is the structured fault surfaced by the processor.
type RuntimeError struct {
	Kind   ErrorKind
	Line   int
	Lexeme string
	Detail string
}

func (e *RuntimeError) Error() string {
	msg := e.Kind.String()
	if e.Lexeme != "" {
		msg += fmt.Sprintf(" (%s)", e.Lexeme)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Suppressible reports whether the error may be caught by a suppression marker.
func (e *RuntimeError) Suppressible() bool {
	return e.Kind.Suppressible()
}

// LexErrorKind classifies lexical faults. All of them are fatal.
type LexErrorKind int

const (
	LexUnterminatedString LexErrorKind = iota + 1
	LexUnterminatedComment
	LexUnterminatedInterpolation
	LexInvalidSequence
)

func (k LexErrorKind) String() string {
	switch k {
	case LexUnterminatedString:
		return "unterminated_string"
	case LexUnterminatedComment:
		return "unterminated_comment"
	case LexUnterminatedInterpolation:
		return "unterminated_interpolation"
	case LexInvalidSequence:
		return "invalid_sequence"
	default:
		return fmt.Sprintf("lex(%d)", int(k))
	}
}

// LexError reports text from which no token can be formed.
type LexError struct {
	Kind   LexErrorKind
	Line   int
	Lexeme string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: %s (%s)", e.Line, e.Kind, e.Lexeme)
}

var (
	errLoopBreak = errors.New("loop break")
	errLoopNext  = errors.New("loop next")
)

type returnSignal struct {
	value Value
}

func (r *returnSignal) Error() string {
	return "return"
}

func isControlSignal(err error) bool {
	var ret *returnSignal
	return errors.Is(err, errLoopBreak) || errors.Is(err, errLoopNext) || errors.As(err, &ret)
}

func newError(kind ErrorKind, line int, lexeme string, format string, args ...any) *RuntimeError {
	detail := ""
	if format != "" {
		detail = fmt.Sprintf(format, args...)
	}
	return &RuntimeError{Kind: kind, Line: line, Lexeme: lexeme, Detail: detail}
}

// at stamps a line onto runtime errors raised below the statement level.
func at(err error, line int) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Line == 0 {
		re.Line = line
	}
	return err
}
