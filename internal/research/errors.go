package research

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures at the service boundary.
type Kind string

const (
	KindInvalidArgument     Kind = "InvalidArgument"
	KindSessionNotFound     Kind = "SessionNotFound"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindSchemaViolation     Kind = "SchemaViolation"
	KindPartialFailure      Kind = "PartialFailure"
)

// Error is a taxonomy-tagged failure. Callers branch on Kind, humans read Msg.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a taxonomy error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause to a taxonomy error.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err carries the given taxonomy kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the taxonomy kind from err, or empty when untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PartialFailure names the interview branches that failed during fan-out. The
// session aborts rather than shipping a report with silently missing sections.
func PartialFailure(failedAnalysts []string) *Error {
	return NewError(KindPartialFailure, "interview branches failed for analysts: %s",
		strings.Join(failedAnalysts, ", "))
}
