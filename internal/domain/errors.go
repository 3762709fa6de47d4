package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a chat or model id is unknown.
var ErrNotFound = errors.New("not found")

// ErrChatBusy is returned when a send is attempted on a chat that
// already has a turn in flight.
var ErrChatBusy = errors.New("a message is already being processed for this chat")

// ValidationError marks input rejected before any mutation took place.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a failure of the external model provider. The user
// message persisted before the call is kept; the chat row is untouched.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return "model provider: " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }
