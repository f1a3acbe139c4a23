package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, and event are required")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
)

// ErrNoTransition indicates the event is not defined for the current state.
type ErrNoTransition struct {
	StateName string
	EventName string
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("no transition from state %q for event %q", e.StateName, e.EventName)
}

// ErrTransitionRejected indicates every candidate transition was vetoed by a
// guard.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state %q for event %q rejected by guards", e.StateName, e.EventName)
}

// IsNoTransition reports whether err is an ErrNoTransition.
func IsNoTransition(err error) bool {
	var e *ErrNoTransition
	return errors.As(err, &e)
}

// IsTransitionRejected reports whether err is an ErrTransitionRejected.
func IsTransitionRejected(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
