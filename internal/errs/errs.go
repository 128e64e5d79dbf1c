// Package errs defines the failure taxonomy shared by the analysis pipeline.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind.
type Code string

const (
	CodeConfiguration        Code = "CONFIGURATION_ERROR"
	CodeGatewayUnavailable   Code = "GATEWAY_UNAVAILABLE"
	CodeNoJSONFound          Code = "NO_JSON_FOUND"
	CodeMalformedJSON        Code = "MALFORMED_JSON"
	CodeModelReportedFailure Code = "MODEL_REPORTED_FAILURE"
	CodeInsufficientFacts    Code = "INSUFFICIENT_FACTS"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is a classified pipeline failure. Message is safe to show to the
// caller; Diagnostic holds the raw model text needed to reproduce it.
type Error struct {
	Code       Code
	Message    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap returns an Error that wraps err.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithDiagnostic attaches raw text to the error and returns it.
func (e *Error) WithDiagnostic(text string) *Error {
	e.Diagnostic = text
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf reports the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return "an unknown server error occurred"
}

// Diagnostic returns the diagnostic payload attached anywhere in err's chain.
func Diagnostic(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Diagnostic != "" {
			return e.Diagnostic
		}
		err = errors.Unwrap(err)
	}
	return ""
}
