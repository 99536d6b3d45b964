package interpreter

import (
	"fmt"
	"testing"
	"time"
)

func TestEvent_Status(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Type: EventInitializing}, "Initializing"},
		{Event{Type: EventListening}, "Listening"},
		{Event{Type: EventHeard, Source: "привет", Translation: "hello"}, "Heard: привет\n→ hello"},
		{Event{Type: EventWarning, Reason: "translation failed"}, "Warning: translation failed"},
		{Event{Type: EventStopped}, "Stopped"},
		{Event{Type: EventFailed, Reason: "recognition model not found"}, "Failed: recognition model not found"},
	}

	for _, tt := range tests {
		t.Run(tt.event.Type.String(), func(t *testing.T) {
			if got := tt.event.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventQueue_NeverBlocksAndKeepsOrder(t *testing.T) {
	q := newEventQueue()
	q.start()

	const n = 10000
	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			q.push(Event{Type: EventWarning, Reason: fmt.Sprint(i)})
		}
		q.close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("push blocked without a reader")
	}

	i := 0
	for e := range q.out {
		if e.Reason != fmt.Sprint(i) {
			t.Fatalf("event %d has reason %q", i, e.Reason)
		}
		i++
	}
	if i != n {
		t.Errorf("received %d events, want %d", i, n)
	}
}

func TestEventQueue_PushAfterClose(t *testing.T) {
	q := newEventQueue()
	q.start()
	q.push(Event{Type: EventStopped})
	q.close()
	q.push(Event{Type: EventListening})

	var got []EventType
	for e := range q.out {
		got = append(got, e.Type)
	}
	if len(got) != 1 || got[0] != EventStopped {
		t.Errorf("events = %v, want [Stopped]", got)
	}
}
