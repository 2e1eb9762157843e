// Package statemachine provides the transition map shared by every entity
// state machine. A map only knows the edges explicitly registered with
// Allow; there is no transitive closure.
package statemachine

import "fmt"

// TransitionMap is a directed graph of legal moves between states of S.
// It is built once, typically in a package-level var, and read concurrently
// afterwards.
type TransitionMap[S comparable] struct {
	edges map[S]map[S]struct{}
}

// New returns an empty transition map.
func New[S comparable]() *TransitionMap[S] {
	return &TransitionMap[S]{edges: make(map[S]map[S]struct{})}
}

// Allow registers from→to for every target and returns the map for chaining.
func (m *TransitionMap[S]) Allow(from S, to ...S) *TransitionMap[S] {
	targets, ok := m.edges[from]
	if !ok {
		targets = make(map[S]struct{}, len(to))
		m.edges[from] = targets
	}
	for _, t := range to {
		targets[t] = struct{}{}
	}
	return m
}

// IsAllowed reports whether from→to was registered.
func (m *TransitionMap[S]) IsAllowed(from, to S) bool {
	_, ok := m.edges[from][to]
	return ok
}

// Check returns a *TransitionError when from→to is not registered.
func (m *TransitionMap[S]) Check(from, to S) error {
	if !m.IsAllowed(from, to) {
		return &TransitionError[S]{From: from, To: to}
	}
	return nil
}

// Machine is implemented by every entity variant. CurrentState is derived
// from the concrete variant alone.
type Machine[S comparable] interface {
	CurrentState() S
	CanTransitionTo(target S) bool
}

// Must panics when m may not move to target. Sagas call it at every stage
// boundary: reaching an unregistered edge means the pipeline itself is wrong.
func Must[S comparable](m Machine[S], target S) {
	if !m.CanTransitionTo(target) {
		panic(&TransitionError[S]{From: m.CurrentState(), To: target})
	}
}

// TransitionError describes a move that the map does not allow.
type TransitionError[S comparable] struct {
	From S
	To   S
}

func (e *TransitionError[S]) Error() string {
	return fmt.Sprintf("illegal transition from %v to %v", e.From, e.To)
}
