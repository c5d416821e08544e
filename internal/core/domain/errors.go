// Package domain defines the core domain model of linkport.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "LP-REQ-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two domain errors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Request errors. All of them are recoverable: the connection still gets its
// response and the listener keeps serving.
var (
	// ErrEmptyRequest indicates the connection closed before any line was read.
	ErrEmptyRequest = NewDomainError("LP-REQ-4000", "empty request")

	// ErrNotGet indicates a request method other than GET.
	ErrNotGet = NewDomainError("LP-REQ-4050", "method not supported")

	// ErrMalformedRequest indicates a request line that does not follow the grammar.
	ErrMalformedRequest = NewDomainError("LP-REQ-4001", "malformed request")

	// ErrHeaderLimit indicates the header block exceeded the configured bounds.
	ErrHeaderLimit = NewDomainError("LP-REQ-4310", "header limit exceeded")
)

// Origin errors.
var (
	// ErrOriginRejected indicates a peer or Host header that is not loopback.
	ErrOriginRejected = NewDomainError("LP-ORIG-4030", "origin rejected")
)

// Navigation errors. These are reported at the host boundary and never
// travel back to the network caller.
var (
	// ErrNoWindow indicates the host has no window to open an editor in.
	ErrNoWindow = NewDomainError("LP-NAV-4040", "no window available")

	// ErrNoEditor indicates no editor could be resolved for a path.
	ErrNoEditor = NewDomainError("LP-NAV-4041", "no editor resolved")

	// ErrBadLine indicates a line number outside the document.
	ErrBadLine = NewDomainError("LP-NAV-4042", "could not find line")

	// ErrFileNotFound indicates the path does not name a file in the workspace.
	ErrFileNotFound = NewDomainError("LP-NAV-4043", "file not found")

	// ErrNavigation indicates the host failed to open an editor.
	ErrNavigation = NewDomainError("LP-NAV-5000", "navigation failed")
)
