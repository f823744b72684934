package mutation

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any network call
	ErrValidation = errors.New("validation failed")
	// ErrTerminalStatus marks a mutation against an enrollment that can no longer transition
	ErrTerminalStatus = errors.New("enrollment is in a terminal status")
)

// RejectedError is a client-side rejection with a message fit for the user
type RejectedError struct {
	Kind    error
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return e.Kind
}

// Reject builds a RejectedError of the given kind
func Reject(kind error, format string, args ...any) error {
	return &RejectedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// serverMessager is implemented by transport errors that carry a
// human-readable message from the backend.
type serverMessager interface {
	ServerMessage() string
}

// UserMessage picks the toast text for err: the backend's message when it
// sent one, the rejection message for client-side rejections, otherwise
// fallback.
func UserMessage(err error, fallback string) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return fallback
}
