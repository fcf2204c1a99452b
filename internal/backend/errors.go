package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// LoadFailure leaves the cache stale.
	LoadFailure Kind = iota + 1
	// MutationFailure covers rejected create, update, delete and import
	// calls, and failed exports.
	MutationFailure
	// ConfigSyncFailure is logged only.
	ConfigSyncFailure
)

func (k Kind) String() string {
	switch k {
	case LoadFailure:
		return "load failure"
	case MutationFailure:
		return "mutation failure"
	case ConfigSyncFailure:
		return "config sync failure"
	default:
		return "unknown failure"
	}
}

// Error is returned by every Client method. Detail holds the response body
// as plain text and is never interpreted.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserDetail is the text shown to the user for this failure.
func (e *Error) UserDetail() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return http.StatusText(e.Status)
	}
	return e.Kind.String()
}

// IsKind reports whether err is a backend error of kind k.
func IsKind(err error, k Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == k
}
