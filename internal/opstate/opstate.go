// Package opstate tracks the lifecycle of long-running operations per
// user, so destructive actions cannot overlap with themselves. Entries are
// process-local; they guard a single service instance, not a cluster.
package opstate

import "sync"

// State is the lifecycle position of one keyed operation.
type State string

const (
	StateIdle     State = "IDLE"
	StateInFlight State = "IN_FLIGHT"
	StateDone     State = "DONE"
	StateFailed   State = "FAILED"
)

type Registry struct {
	mu     sync.Mutex
	states map[string]State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]State)}
}

func key(userID, operation string) string {
	return userID + "/" + operation
}

// Begin moves the operation to IN_FLIGHT. It reports false when the same
// operation is already running, in which case the caller must not proceed.
// A finished operation, done or failed, may begin again.
func (r *Registry) Begin(userID, operation string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states[key(userID, operation)] == StateInFlight {
		return false
	}
	r.states[key(userID, operation)] = StateInFlight
	return true
}

// Finish records how the run ended. Callers defer it immediately after a
// successful Begin so the in-flight marker resolves no matter how the
// operation exits.
func (r *Registry) Finish(userID, operation string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if failed {
		r.states[key(userID, operation)] = StateFailed
		return
	}
	r.states[key(userID, operation)] = StateDone
}

// Status reports the operation's current state. Unknown keys are idle.
func (r *Registry) Status(userID, operation string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[key(userID, operation)]; ok {
		return s
	}
	return StateIdle
}

// Running reports whether the operation is currently in flight.
func (r *Registry) Running(userID, operation string) bool {
	return r.Status(userID, operation) == StateInFlight
}
