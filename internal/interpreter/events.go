// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Status events and the unbounded ordered event queue
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package interpreter

import (
	"sync"
	"time"
)

// EventType identifies a status event
type EventType int

const (
	EventInitializing EventType = iota
	EventListening
	EventHeard
	EventWarning
	EventStopped
	EventFailed
)

// String returns the event type name
func (t EventType) String() string {
	switch t {
	case EventInitializing:
		return "initializing"
	case EventListening:
		return "listening"
	case EventHeard:
		return "heard"
	case EventWarning:
		return "warning"
	case EventStopped:
		return "stopped"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a status report of one pipeline instance
type Event struct {
	Type     EventType `json:"-"`
	Kind     string    `json:"type"`
	Instance string    `json:"instance"`
	State    string    `json:"state"`

	// Heard events
	Source      string `json:"source,omitempty"`
	Translation string `json:"translation,omitempty"`

	// Warning and Failed events
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`

	Time time.Time `json:"time"`
}

// Status renders the event as a user-facing status line
func (e Event) Status() string {
	switch e.Type {
	case EventInitializing:
		return "Initializing"
	case EventListening:
		return "Listening"
	case EventHeard:
		return "Heard: " + e.Source + "\n→ " + e.Translation
	case EventWarning:
		return "Warning: " + e.Reason
	case EventStopped:
		return "Stopped"
	case EventFailed:
		return "Failed: " + e.Reason
	default:
		return ""
	}
}

// IsTerminal reports whether no event follows this one
func (e Event) IsTerminal() bool {
	return e.Type == EventStopped || e.Type == EventFailed
}

// Sink consumes status events
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// Publish implements Sink
func (f SinkFunc) Publish(e Event) {
	f(e)
}

// eventQueue buffers events without bound so publishing never blocks
// the loop. Events are delivered on out in publish order; out is closed
// once the queue is closed and drained. Delivery begins with start.
type eventQueue struct {
	once   sync.Once
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
	out    chan Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
	}
}

func (q *eventQueue) start() {
	q.once.Do(func() { go q.pump() })
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.wake()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *eventQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pump() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				close(q.out)
				return
			}
			<-q.notify
			continue
		}
		e := q.items[0]
		q.items[0] = Event{}
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- e
	}
}
