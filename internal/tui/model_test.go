package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

type fakeControl struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
}

func (f *fakeControl) Start() (*interpreter.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil, f.startErr
}

func (f *fakeControl) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeControl) State() interpreter.State {
	return interpreter.StateIdle
}

func key(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func newModel(control Control) Model {
	return New(control, nil, Info{Source: "ru", Target: "en", Input: "", Output: "Speakers"})
}

func TestModel_StartKey(t *testing.T) {
	control := &fakeControl{}
	m := newModel(control)

	m, cmd := update(t, m, key("s"))
	if cmd == nil {
		t.Fatal("start key returned no command")
	}
	msg := cmd()
	if control.starts != 1 {
		t.Errorf("starts = %d, want 1", control.starts)
	}

	m, _ = update(t, m, msg)
	if m.err != "" {
		t.Errorf("err = %q, want empty", m.err)
	}
}

func TestModel_StartError(t *testing.T) {
	control := &fakeControl{startErr: errors.New("already running")}
	m := newModel(control)

	_, cmd := update(t, m, key("s"))
	m, _ = update(t, m, cmd())

	if !strings.Contains(m.View(), "start: already running") {
		t.Errorf("View() misses start error:\n%s", m.View())
	}
}

func TestModel_KeysDependOnState(t *testing.T) {
	control := &fakeControl{}
	m := newModel(control)

	// Stop while idle does nothing
	if _, cmd := update(t, m, key("x")); cmd != nil {
		t.Error("stop key while idle returned a command")
	}

	m, _ = update(t, m, eventMsg(interpreter.Event{Type: interpreter.EventListening}))

	// Start while listening does nothing
	if _, cmd := update(t, m, key("s")); cmd != nil {
		t.Error("start key while listening returned a command")
	}

	m, cmd := update(t, m, key("x"))
	if cmd == nil {
		t.Fatal("stop key while listening returned no command")
	}
	if m.state != interpreter.StateStopping {
		t.Errorf("state = %v, want Stopping", m.state)
	}
	cmd()
	if control.stops != 1 {
		t.Errorf("stops = %d, want 1", control.stops)
	}
}

func TestModel_Events(t *testing.T) {
	m := newModel(&fakeControl{})

	events := []interpreter.Event{
		{Type: interpreter.EventInitializing},
		{Type: interpreter.EventListening},
		{Type: interpreter.EventHeard, Source: "привет как дела", Translation: "hi, how are you", Time: time.Now()},
		{Type: interpreter.EventWarning, Reason: "translation failed"},
	}
	for _, e := range events {
		m, _ = update(t, m, eventMsg(e))
	}

	if m.state != interpreter.StateListening {
		t.Errorf("state = %v, want Listening", m.state)
	}
	if m.heard != 1 || m.warnings != 1 {
		t.Errorf("heard/warnings = %d/%d, want 1/1", m.heard, m.warnings)
	}

	view := m.View()
	for _, want := range []string{"привет как дела", "→ hi, how are you", "translation failed", "ru → en", "Speakers"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() misses %q", want)
		}
	}

	m, _ = update(t, m, key("c"))
	if !strings.Contains(m.View(), "Nothing heard yet") {
		t.Error("clear key kept the transcript")
	}

	m, _ = update(t, m, eventMsg(interpreter.Event{Type: interpreter.EventFailed, Reason: "device unplugged"}))
	if m.state != interpreter.StateFailed {
		t.Errorf("state = %v, want Failed", m.state)
	}
	if !strings.Contains(m.View(), "device unplugged") {
		t.Error("View() misses failure reason")
	}
}

func TestModel_QuitStopsActivePipeline(t *testing.T) {
	control := &fakeControl{}
	m := newModel(control)

	m, cmd := update(t, m, key("q"))
	if !m.quitting || cmd == nil {
		t.Fatal("quit key did not quit")
	}

	m = newModel(control)
	m, _ = update(t, m, eventMsg(interpreter.Event{Type: interpreter.EventListening}))
	m, cmd = update(t, m, key("q"))
	if !m.quitting || cmd == nil {
		t.Fatal("quit key while listening did not quit")
	}
	if m.View() != "Bye.\n" {
		t.Errorf("View() = %q after quit", m.View())
	}
}

func TestModel_TranscriptFitsHeight(t *testing.T) {
	m := newModel(&fakeControl{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 13})

	for i := 0; i < maxHistory+10; i++ {
		m, _ = update(t, m, eventMsg(interpreter.Event{Type: interpreter.EventHeard, Source: "a", Translation: "b"}))
	}

	if len(m.lines) != maxHistory {
		t.Errorf("history = %d, want %d", len(m.lines), maxHistory)
	}
	if got := m.transcriptLines(); got != 2 {
		t.Errorf("transcriptLines() = %d, want 2", got)
	}
}

func TestBridge(t *testing.T) {
	b := NewBridge()
	b.Publish(interpreter.Event{Type: interpreter.EventListening})

	msg := waitForEvent(b.Events())()
	e, ok := msg.(eventMsg)
	if !ok {
		t.Fatalf("msg = %T, want eventMsg", msg)
	}
	if e.Type != interpreter.EventListening {
		t.Errorf("Type = %v, want Listening", e.Type)
	}

	// A full bridge drops instead of blocking
	for i := 0; i < bridgeBuffer+5; i++ {
		b.Publish(interpreter.Event{Type: interpreter.EventHeard})
	}
	if len(b.Events()) != bridgeBuffer {
		t.Errorf("buffered = %d, want %d", len(b.Events()), bridgeBuffer)
	}

	if waitForEvent(nil) != nil {
		t.Error("waitForEvent(nil) returned a command")
	}
}

func TestBridge_KeepsTerminalEvents(t *testing.T) {
	b := NewBridge()
	for i := 0; i < bridgeBuffer; i++ {
		b.Publish(interpreter.Event{Type: interpreter.EventHeard})
	}
	b.Publish(interpreter.Event{Type: interpreter.EventStopped})

	if len(b.Events()) != bridgeBuffer {
		t.Fatalf("buffered = %d, want %d", len(b.Events()), bridgeBuffer)
	}

	var last interpreter.Event
	for len(b.Events()) > 0 {
		last = <-b.Events()
	}
	if last.Type != interpreter.EventStopped {
		t.Errorf("last event = %v, want Stopped", last.Type)
	}
}
