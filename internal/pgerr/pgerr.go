// Package pgerr defines the error kinds surfaced by the pangraph core:
// input validation, invariant violations, external tool failures, and
// unsupported operations. Callers should use [errors.As] against [*Error]
// and switch on [Error.Kind] rather than matching message text.
package pgerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind categorizes an Error.
type Kind int

const (
	// InputValidation covers malformed input: duplicate FASTA names,
	// malformed JSON, unknown output formats. The current command aborts
	// with no partial output.
	InputValidation Kind = iota
	// InvariantViolation covers a failed internal consistency check on a
	// block or the graph. Fatal: it indicates a defect in the core
	// itself, not recoverable input.
	InvariantViolation
	// ExternalTool covers a missing subprocess, non-zero exit, or
	// malformed stdout from an aligner or MSA tool.
	ExternalTool
	// Unsupported covers a CIGAR op outside {M,I,D}, a clip op, or a
	// state the partition/re-reference machines don't handle.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case InputValidation:
		return "input validation"
	case InvariantViolation:
		return "invariant violation"
	case ExternalTool:
		return "external tool"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by the exported pangraph
// operations that can fail, except align.ParseCigar, which reports
// malformed input with plain errors and unsupported operators with
// align.UnsupportedOpError. Op names the operation that failed (e.g.
// "block.Slice", "merge.Partition").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid wraps err as an InputValidation error.
func Invalid(op string, err error) error {
	return &Error{Kind: InputValidation, Op: op, Err: err}
}

// Invalidf formats an InputValidation error.
func Invalidf(op, format string, args ...interface{}) error {
	return &Error{Kind: InputValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Invariant wraps err as a fatal InvariantViolation, capturing a stack
// trace at the point of failure so an operator can locate the defect.
func Invariant(op string, err error) error {
	return &Error{Kind: InvariantViolation, Op: op, Err: errors.WithStack(err)}
}

// Invariantf formats a fatal InvariantViolation error with a captured stack.
func Invariantf(op, format string, args ...interface{}) error {
	return &Error{Kind: InvariantViolation, Op: op, Err: errors.WithStack(fmt.Errorf(format, args...))}
}

// External wraps err as an ExternalTool error.
func External(op string, err error) error {
	return &Error{Kind: ExternalTool, Op: op, Err: err}
}

// Unsupportedf formats an Unsupported error.
func Unsupportedf(op, format string, args ...interface{}) error {
	return &Error{Kind: Unsupported, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
