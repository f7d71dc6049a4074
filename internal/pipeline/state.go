package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// State is a pipeline run's position in its lifecycle.
type State string

const (
	StatePending      State = "PENDING"
	StateExtracting   State = "EXTRACTING"
	StateLoading      State = "LOADING"
	StateTransforming State = "TRANSFORMING"
	StateSucceeded    State = "SUCCEEDED"
	StateFailed       State = "FAILED"
)

// ErrIllegalTransition is returned when a run is moved to a state its current
// state cannot reach.
var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[State][]State{
	StatePending:      {StateExtracting, StateFailed},
	StateExtracting:   {StateLoading, StateFailed},
	StateLoading:      {StateTransforming, StateFailed},
	StateTransforming: {StateSucceeded, StateFailed},
}

// CanTransition reports whether to is reachable from s in one step.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Machine tracks the state of one run. It is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	state   State
	history []State
}

// NewMachine returns a machine in StatePending.
func NewMachine() *Machine {
	return &Machine{state: StatePending, history: []State{StatePending}}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every state the machine has been in, oldest first.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// Transition moves the machine to the given state or returns ErrIllegalTransition.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
