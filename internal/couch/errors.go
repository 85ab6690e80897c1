package couch

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure so callers can branch on it.
type Kind string

// Error kinds
const (
	KindNotConnected     Kind = "not_connected"
	KindConnection       Kind = "connection_error"
	KindInvalidName      Kind = "invalid_name"
	KindInvalidJSON      Kind = "invalid_json"
	KindInvalidIndexSpec Kind = "invalid_index_spec"
	KindDatabaseExists   Kind = "database_exists"
	KindDatabaseNotFound Kind = "database_not_found"
	KindNotFound         Kind = "not_found"
	KindDocumentExists   Kind = "document_exists"
	KindRevisionConflict Kind = "revision_conflict"
	KindUnsupported      Kind = "unsupported"
	KindCancelled        Kind = "cancelled"
	KindServer           Kind = "server_error"
)

// Error is the failure type returned by every operation in this module.
// StatusCode is set when the server reported the failure, 0 otherwise.
type Error struct {
	Kind       Kind
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind around a cause.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" if err is not an Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ErrNotConnected is returned by every operation attempted while no
// server connection is established.
var ErrNotConnected = &Error{Kind: KindNotConnected, Reason: "not connected to a server"}
