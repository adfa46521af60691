// Package trace carries the solver's structured event stream to observers.
package trace

import (
	"sync"
	"time"
)

// State names a step of the iteration state machine.
type State string

const (
	StateDispatchPower    State = "DISPATCH_POWER"
	StateDeriveSTGSteam   State = "DERIVE_STG_STEAM_NEED"
	StateBalanceSteam     State = "BALANCE_STEAM"
	StateCheckSHPCapacity State = "CHECK_SHP_CAPACITY"
	StateReduceSTG        State = "REDUCE_STG"
	StateRecoverSTG       State = "RECOVER_STG"
	StateRebalanceExcess  State = "REBALANCE_EXCESS_STEAM"
	StateEstimateUtility  State = "ESTIMATE_UTILITY_POWER"
	StateCheckConvergence State = "CHECK_CONVERGENCE"
	StateConverged        State = "CONVERGED"
	StateFailed           State = "FAILED"
	StateIterationLimit   State = "ITERATION_LIMIT"
)

// Event is one observation emitted by the solver.
type Event struct {
	RunID     string             `json:"run_id"`
	Period    string             `json:"period"`
	Iteration int                `json:"iteration"`
	State     State              `json:"state"`
	Message   string             `json:"message,omitempty"`
	Fields    map[string]float64 `json:"fields,omitempty"`
	Time      time.Time          `json:"time"`
}

// Observer receives solver events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// Nop discards every event.
type Nop struct{}

// Observe does nothing.
func (Nop) Observe(Event) {}

// Multi fans events out to several observers in order.
type Multi []Observer

// Observe forwards e to every non-nil observer.
func (m Multi) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe appends e.
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// States returns the recorded states in order.
func (r *Recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}
