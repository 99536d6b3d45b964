// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Pipeline lifecycle state machine
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package interpreter

import (
	"slices"
	"sync"
	"time"
)

// State is the lifecycle state of one pipeline instance
type State int

const (
	// StateIdle - constructed, not started
	StateIdle State = iota

	// StateInitializing - opening audio source and recognizer
	StateInitializing

	// StateListening - interpretation loop running
	StateListening

	// StateStopping - stop requested, releasing resources
	StateStopping

	// StateStopped - terminal, stopped on request
	StateStopped

	// StateFailed - terminal, stopped by a fatal error
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateInitializing:
		return "Initializing"
	case StateListening:
		return "Listening"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Icon returns an icon for the state
func (s State) Icon() string {
	switch s {
	case StateIdle:
		return "⏸"
	case StateInitializing:
		return "⚙️"
	case StateListening:
		return "🎤"
	case StateStopping:
		return "⏳"
	case StateStopped:
		return "⏹"
	case StateFailed:
		return "❌"
	default:
		return "?"
	}
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// IsActive reports whether the instance holds or is acquiring resources
func (s State) IsActive() bool {
	return s == StateInitializing || s == StateListening || s == StateStopping
}

var validTransitions = map[State][]State{
	StateIdle:         {StateInitializing},
	StateInitializing: {StateListening, StateStopping, StateFailed},
	StateListening:    {StateStopping, StateFailed},
	StateStopping:     {StateStopped},
}

// StateChangeListener is called when state changes
type StateChangeListener func(oldState, newState State)

// StateMachine manages state transitions
type StateMachine struct {
	mu            sync.RWMutex
	currentState  State
	previousState State
	stateTime     time.Time
	listeners     []StateChangeListener
}

// NewStateMachine creates a new state machine in StateIdle
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
		stateTime:    time.Now(),
	}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Previous returns the previous state
func (sm *StateMachine) Previous() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.previousState
}

// StateDuration returns how long we've been in the current state
func (sm *StateMachine) StateDuration() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateTime)
}

// Transition changes to a new state. It returns false and changes
// nothing when the transition is not allowed.
func (sm *StateMachine) Transition(newState State) bool {
	sm.mu.Lock()
	oldState := sm.currentState

	if !slices.Contains(validTransitions[oldState], newState) {
		sm.mu.Unlock()
		return false
	}

	sm.previousState = oldState
	sm.currentState = newState
	sm.stateTime = time.Now()
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener(oldState, newState)
	}

	return true
}

// AddListener adds a state change listener
func (sm *StateMachine) AddListener(listener StateChangeListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}
