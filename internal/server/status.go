// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     server
// Description: Snapshot of the interpreter status for remote observers
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package server

import (
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

const defaultTranscriptLines = 50

// Line is one interpreted utterance
type Line struct {
	Source      string    `json:"source"`
	Translation string    `json:"translation"`
	Time        time.Time `json:"time"`
}

// Snapshot is the current interpreter status
type Snapshot struct {
	Instance   string    `json:"instance,omitempty"`
	State      string    `json:"state"`
	Status     string    `json:"status"`
	Since      time.Time `json:"since"`
	Heard      int       `json:"heard"`
	Warnings   int       `json:"warnings"`
	LastError  string    `json:"last_error,omitempty"`
	Observers  int       `json:"observers"`
	Transcript []Line    `json:"transcript"`
}

// Tracker folds events into a Snapshot
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	maxLines int
}

// NewTracker creates a tracker keeping the last maxLines utterances
func NewTracker(maxLines int) *Tracker {
	if maxLines <= 0 {
		maxLines = defaultTranscriptLines
	}
	return &Tracker{
		maxLines: maxLines,
		snap: Snapshot{
			State:  interpreter.StateIdle.String(),
			Status: "Idle",
			Since:  time.Now(),
		},
	}
}

// Publish implements interpreter.Sink
func (t *Tracker) Publish(e interpreter.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Instance != t.snap.Instance {
		// A new instance starts a new session
		t.snap = Snapshot{Instance: e.Instance, Since: e.Time}
	}

	t.snap.State = e.State
	t.snap.Status = e.Status()

	switch e.Type {
	case interpreter.EventHeard:
		t.snap.Heard++
		t.snap.Transcript = append(t.snap.Transcript, Line{
			Source:      e.Source,
			Translation: e.Translation,
			Time:        e.Time,
		})
		if over := len(t.snap.Transcript) - t.maxLines; over > 0 {
			t.snap.Transcript = t.snap.Transcript[over:]
		}
	case interpreter.EventWarning:
		t.snap.Warnings++
		t.snap.LastError = e.Reason
	case interpreter.EventFailed:
		t.snap.LastError = e.Reason
	}
}

// Snapshot returns a copy of the current status
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.snap
	s.Transcript = append([]Line{}, t.snap.Transcript...)
	return s
}
