package search

import (
	"errors"
	"strings"
)

// Kind classifies a search failure for the caller.
type Kind int

const (
	// KindUser is a client-correctable input error.
	KindUser Kind = iota + 1
	// KindConfiguration means the deployment lacks a vector index.
	KindConfiguration
	// KindInternal covers embedding, index and decode failures.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindConfiguration:
		return "configuration"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// InternalMessage is the only message clients see for internal errors.
const InternalMessage = "internal server error"

// Error is a classified search failure. Err carries the cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	cause := e.Err.Error()
	if strings.HasPrefix(cause, e.Message) {
		return cause
	}
	return e.Message + ": " + cause
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrNotConfigured is returned when no vector index is configured.
	ErrNotConfigured = &Error{Kind: KindConfiguration, Message: "vector index not configured"}
	// ErrEmptySearch is returned when the query has no free-text target.
	ErrEmptySearch = &Error{Kind: KindUser, Message: "empty search"}
)

func userError(msg string, err error) *Error {
	return &Error{Kind: KindUser, Message: msg, Err: err}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// PublicMessage returns the message safe to show a client: the message of user
// and configuration errors, InternalMessage for everything else.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		if se.Kind == KindUser && se.Err != nil {
			return se.Error()
		}
		return se.Message
	}
	return InternalMessage
}
