// Package statemachine provides a small finite state machine used to drive
// multi-stage flows such as the social login callback. Transitions carry
// guards, which may veto a transition, and actions, which run side effects
// before the state changes; an action error aborts the transition.
package statemachine

import (
	"context"
	"sync"
)

// State is a named state.
type State interface {
	Name() string
}

// Event is a named trigger for a transition.
type Event interface {
	Name() string
}

// StringState is a string-backed State for simple machines.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-backed Event for simple machines.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

// Guard decides whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs a side effect during a transition. A non-nil error prevents the
// state change.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// Machine is a thread-safe in-memory state machine. Transition lookup is by
// (state name, event name); multiple transitions may share a pair to support
// guard-based branching.
type Machine struct {
	mu          sync.Mutex
	initial     State
	current     State
	transitions map[string]map[string][]Transition
}

// New creates a machine positioned at initial.
func New(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AddTransition registers a transition.
func (m *Machine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[from.Name()] = byEvent
	}
	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// Fire applies event to the current state. The first transition whose guards
// all pass wins; its actions run in order before the state changes. Returns
// ErrNoTransition when the event is not defined for the current state,
// ErrTransitionRejected when every candidate was vetoed by a guard, or the
// first action error.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.transitions[m.current.Name()][event.Name()]
	if len(candidates) == 0 {
		return &ErrNoTransition{StateName: m.current.Name(), EventName: event.Name()}
	}

	for _, t := range candidates {
		if !guardsPass(ctx, t, event, data) {
			continue
		}
		for _, action := range t.Actions {
			if err := action(ctx, t.From, t.To, event, data); err != nil {
				return err
			}
		}
		m.current = t.To
		return nil
	}

	return &ErrTransitionRejected{StateName: m.current.Name(), EventName: event.Name()}
}

// CanFire reports whether event would cause a transition from the current
// state, without running any actions.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.transitions[m.current.Name()][event.Name()] {
		if guardsPass(ctx, t, event, data) {
			return true
		}
	}
	return false
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func guardsPass(ctx context.Context, t Transition, event Event, data any) bool {
	for _, g := range t.Guards {
		if !g(ctx, t.From, event, data) {
			return false
		}
	}
	return true
}
