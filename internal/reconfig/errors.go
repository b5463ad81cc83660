package reconfig

import (
	"errors"
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/binding"
	"github.com/mldulaney/scopehal-apps/internal/edit"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// ErrorCode categorizes reconfiguration errors.
type ErrorCode string

const (
	// ErrCodeInvalidFormat: pending text does not parse under the parameter's
	// unit. The stored value is kept.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrCodeIncompatibleStream: a selection was not among the offered
	// candidates. Candidate lists are pre-filtered, so this signals a caller
	// or validator defect.
	ErrCodeIncompatibleStream ErrorCode = "INCOMPATIBLE_STREAM"

	// ErrCodeStaleCandidate: the graph, or an input written earlier in the
	// same pass, changed after candidates were collected and the staged
	// stream no longer validates.
	ErrCodeStaleCandidate ErrorCode = "STALE_CANDIDATE"

	// ErrCodeUnsupportedKind: the parameter kind has no text form.
	ErrCodeUnsupportedKind ErrorCode = "UNSUPPORTED_KIND"

	// ErrCodeUnknownParameter: the node declares no such parameter.
	ErrCodeUnknownParameter ErrorCode = "UNKNOWN_PARAMETER"

	// ErrCodeInputOutOfRange: the node has no input at that index.
	ErrCodeInputOutOfRange ErrorCode = "INPUT_OUT_OF_RANGE"

	// ErrCodePassInProgress: another pass is open on the controller.
	ErrCodePassInProgress ErrorCode = "PASS_IN_PROGRESS"

	// ErrCodePassClosed: the pass or editor was already committed, abandoned
	// or closed.
	ErrCodePassClosed ErrorCode = "PASS_CLOSED"
)

// Error is a reconfiguration failure with enough context to show the user.
type Error struct {
	Code    ErrorCode
	Message string
	Node    string // instance name
	Field   string // input or parameter name, if any
	Err     error  // underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Node != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (node=%s, field=%s)", e.Code, e.Message, e.Node, e.Field)
	case e.Node != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, node, field string, cause error) *Error {
	msg := string(code)
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Message: msg, Node: node, Field: field, Err: cause}
}

// codeFor maps leaf package errors onto error codes.
func codeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, unit.ErrInvalidFormat):
		return ErrCodeInvalidFormat
	case errors.Is(err, param.ErrUnsupportedKind):
		return ErrCodeUnsupportedKind
	case errors.Is(err, param.ErrUnknownParameter):
		return ErrCodeUnknownParameter
	case errors.Is(err, binding.ErrInputOutOfRange):
		return ErrCodeInputOutOfRange
	case errors.Is(err, binding.ErrIncompatibleStream):
		return ErrCodeIncompatibleStream
	case errors.Is(err, edit.ErrClosed):
		return ErrCodePassClosed
	}
	return ErrCodeInvalidFormat
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsInvalidFormat reports whether err is an INVALID_FORMAT error.
// Uses errors.As, so wrapped and aggregated errors match.
func IsInvalidFormat(err error) bool { return hasCode(err, ErrCodeInvalidFormat) }

// IsIncompatibleStream reports whether err is an INCOMPATIBLE_STREAM error.
func IsIncompatibleStream(err error) bool { return hasCode(err, ErrCodeIncompatibleStream) }

// IsStaleCandidate reports whether err is a STALE_CANDIDATE error.
func IsStaleCandidate(err error) bool { return hasCode(err, ErrCodeStaleCandidate) }

// IsUnsupportedKind reports whether err is an UNSUPPORTED_KIND error.
func IsUnsupportedKind(err error) bool { return hasCode(err, ErrCodeUnsupportedKind) }

// IsUnknownParameter reports whether err is an UNKNOWN_PARAMETER error.
func IsUnknownParameter(err error) bool { return hasCode(err, ErrCodeUnknownParameter) }

// IsInputOutOfRange reports whether err is an INPUT_OUT_OF_RANGE error.
func IsInputOutOfRange(err error) bool { return hasCode(err, ErrCodeInputOutOfRange) }

// IsPassInProgress reports whether err is a PASS_IN_PROGRESS error.
func IsPassInProgress(err error) bool { return hasCode(err, ErrCodePassInProgress) }

// IsPassClosed reports whether err is a PASS_CLOSED error.
func IsPassClosed(err error) bool { return hasCode(err, ErrCodePassClosed) }
