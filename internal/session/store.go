package session

import (
	"sync"
	"time"
)

// Mode describes how a student opened a task.
type Mode string

const (
	// ModeUntimed has no economy interaction at all.
	ModeUntimed Mode = "untimed"
	// ModeTimed starts the bonus timer and may carry an escrowed bet.
	ModeTimed Mode = "timed"
)

// State is the ephemeral record of an in-progress attempt. A non-zero Bet
// always corresponds to points already deducted from the student's balance.
type State struct {
	Mode      Mode
	StartedAt time.Time
	Bet       int64
}

// key identifies at most one active state per student per task.
type key struct {
	StudentID uint
	TaskID    uint
}

// Store is an explicit, mutex-guarded keyed store for attempt state. It
// replaces framework-attached conversation state so lifetime and ownership
// stay unambiguous: created on open, destroyed on submit or reset.
type Store struct {
	mu     sync.Mutex
	states map[key]State
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{states: make(map[key]State)}
}

// Put stores state for the (student, task) pair. It reports false without
// overwriting when a record already exists.
func (s *Store) Put(studentID, taskID uint, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{StudentID: studentID, TaskID: taskID}
	if _, exists := s.states[k]; exists {
		return false
	}
	s.states[k] = state
	return true
}

// Get returns the active state for the pair, if any.
func (s *Store) Get(studentID, taskID uint) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[key{StudentID: studentID, TaskID: taskID}]
	return state, ok
}

// Clear removes and returns the active state for the pair, if any.
func (s *Store) Clear(studentID, taskID uint) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{StudentID: studentID, TaskID: taskID}
	state, ok := s.states[k]
	if ok {
		delete(s.states, k)
	}
	return state, ok
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
