package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle position of one (file, stage) pair.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// StageState is the observable state of one (file, stage) pair.
type StageState struct {
	Status    Status
	Err       error
	Attempts  int
	UpdatedAt time.Time
}

type stateKey struct {
	path  string
	stage Stage
}

// stateTable tracks every (file, stage) pair. Transitions are enforced
// under one mutex: pending or failed may begin processing, processing may
// settle to complete or failed, and nothing else moves. In particular a
// pair already processing can never begin again, which is the
// at-most-one-in-flight guarantee.
type stateTable struct {
	mu     sync.Mutex
	states map[stateKey]*StageState
	now    func() time.Time
}

func newStateTable() *stateTable {
	return &stateTable{
		states: make(map[stateKey]*StageState),
		now:    time.Now,
	}
}

// register creates pending entries for every stage of a file.
func (t *stateTable) register(path string, stages []Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, stage := range stages {
		t.states[stateKey{path, stage}] = &StageState{Status: StatusPending, UpdatedAt: t.now()}
	}
}

// begin moves a pair into processing. Only pending and failed states are
// eligible.
func (t *stateTable) begin(path string, stage Stage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[stateKey{path, stage}]
	if !ok {
		return fmt.Errorf("begin %s/%s: stage not registered", path, stage)
	}
	if state.Status != StatusPending && state.Status != StatusFailed {
		return fmt.Errorf("begin %s/%s: illegal transition from %s", path, stage, state.Status)
	}
	state.Status = StatusProcessing
	state.Err = nil
	state.Attempts++
	state.UpdatedAt = t.now()
	return nil
}

// complete settles a processing pair as done.
func (t *stateTable) complete(path string, stage Stage) error {
	return t.settle(path, stage, StatusComplete, nil)
}

// fail settles a processing pair with its error.
func (t *stateTable) fail(path string, stage Stage, cause error) error {
	return t.settle(path, stage, StatusFailed, cause)
}

func (t *stateTable) settle(path string, stage Stage, status Status, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[stateKey{path, stage}]
	if !ok {
		return fmt.Errorf("settle %s/%s: stage not registered", path, stage)
	}
	if state.Status != StatusProcessing {
		return fmt.Errorf("settle %s/%s: illegal transition from %s to %s", path, stage, state.Status, status)
	}
	state.Status = status
	state.Err = cause
	state.UpdatedAt = t.now()
	return nil
}

// markComplete forces a pair to complete regardless of its current state.
// Reserved for explicit manual overrides.
func (t *stateTable) markComplete(path string, stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[stateKey{path, stage}]
	if !ok {
		state = &StageState{}
		t.states[stateKey{path, stage}] = state
	}
	state.Status = StatusComplete
	state.Err = nil
	state.UpdatedAt = t.now()
}

// get returns a copy of the pair's state.
func (t *stateTable) get(path string, stage Stage) (StageState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[stateKey{path, stage}]
	if !ok {
		return StageState{}, false
	}
	return *state, true
}

// snapshot copies the states for one file.
func (t *stateTable) snapshot(path string, stages []Stage) map[Stage]StageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Stage]StageState, len(stages))
	for _, stage := range stages {
		if state, ok := t.states[stateKey{path, stage}]; ok {
			out[stage] = *state
		}
	}
	return out
}

// reset drops every tracked pair.
func (t *stateTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[stateKey]*StageState)
}
