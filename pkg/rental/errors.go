package rental

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflictingSession = errors.New("conflicting session")
	ErrInvalidState       = errors.New("invalid state")
	ErrOutOfRange         = errors.New("out of range")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTransient          = errors.New("transient failure, retry")
)

// TransitionError is returned when an event does not apply to the current status.
type TransitionError struct {
	Entity string
	Event  string
	Status string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s %s in status %s", ErrInvalidTransition, e.Event, e.Entity, e.Status)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type StateError struct {
	Event string
	State SessionState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s is not allowed on a %s session", ErrInvalidState, e.Event, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// ConflictingSessionError names the battery the user is still holding.
type ConflictingSessionError struct {
	SessionID    uint
	BatteryID    uint
	BatteryName  string
	SerialNumber string
}

func (e *ConflictingSessionError) Error() string {
	return fmt.Sprintf("%s: battery %s (%s) is still in use, finish it before starting a new rental",
		ErrConflictingSession, e.BatteryName, e.SerialNumber)
}

func (e *ConflictingSessionError) Unwrap() error {
	return ErrConflictingSession
}

func notFound(what string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}
