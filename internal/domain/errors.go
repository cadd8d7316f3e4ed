package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies calculation failures.
type ErrorCode string

const (
	CodeMissingReference     ErrorCode = "missing_reference"
	CodeMissingSoilParameter ErrorCode = "missing_soil_parameter"
	CodeUnknownValue         ErrorCode = "unknown_value"
	CodeExternalIO           ErrorCode = "external_io"
)

// Sentinels for errors.Is. A CalculationError matches the sentinel with the
// same code.
var (
	ErrMissingReference     = &CalculationError{Code: CodeMissingReference}
	ErrMissingSoilParameter = &CalculationError{Code: CodeMissingSoilParameter}
	ErrUnknownValue         = &CalculationError{Code: CodeUnknownValue}
	ErrExternalIO           = &CalculationError{Code: CodeExternalIO}
)

// CalculationError is a tagged failure of a balance calculation. Context holds
// the identifiers and values needed to trace the failure back to a record.
type CalculationError struct {
	Code    ErrorCode
	Message string
	Context map[string]string
	Err     error
}

// NewError builds a CalculationError. kv is a list of alternating context
// keys and values; a trailing key without value is ignored.
func NewError(code ErrorCode, message string, kv ...string) *CalculationError {
	e := &CalculationError{Code: code, Message: message}
	if len(kv) > 1 {
		e.Context = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Context[kv[i]] = kv[i+1]
		}
	}
	return e
}

// ExternalIOError wraps a failure of an external collaborator.
func ExternalIOError(message string, err error) *CalculationError {
	return &CalculationError{Code: CodeExternalIO, Message: message, Err: err}
}

func (e *CalculationError) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Code))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CalculationError) Unwrap() error { return e.Err }

// Is matches any CalculationError carrying the same code.
func (e *CalculationError) Is(target error) bool {
	var t *CalculationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorCodeOf returns the code of the first CalculationError in err's chain,
// or the empty code.
func ErrorCodeOf(err error) ErrorCode {
	var ce *CalculationError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
