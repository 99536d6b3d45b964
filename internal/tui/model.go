// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tui
// Description: Terminal front-end for the interpreter
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package tui renders the interpreter status, the transcript and the
// start/stop controls in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

const (
	defaultTranscriptLines = 8
	maxHistory             = 100
	bridgeBuffer           = 256
)

// Control is the part of the controller the UI drives
type Control interface {
	Start() (*interpreter.Pipeline, error)
	Stop() error
	State() interpreter.State
}

// Bridge is an interpreter.Sink feeding events into the UI
type Bridge struct {
	ch chan interpreter.Event
}

// NewBridge creates an event bridge
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan interpreter.Event, bridgeBuffer)}
}

// Publish implements interpreter.Sink. Events are dropped while the UI
// lags, except terminal ones, which evict the oldest pending event.
func (b *Bridge) Publish(e interpreter.Event) {
	for {
		select {
		case b.ch <- e:
			return
		default:
		}
		if !e.IsTerminal() {
			return
		}
		select {
		case <-b.ch:
		default:
		}
	}
}

// Events returns the channel the UI reads from
func (b *Bridge) Events() <-chan interpreter.Event {
	return b.ch
}

// Info describes the session shown in the header
type Info struct {
	Source string
	Target string
	Input  interpreter.DeviceHandle
	Output interpreter.DeviceHandle
}

type transcriptLine struct {
	source      string
	translation string
	warning     string
	at          time.Time
}

type eventMsg interpreter.Event

type controlMsg struct {
	action string
	err    error
}

// Model is the bubbletea model of the interpreter UI
type Model struct {
	control Control
	events  <-chan interpreter.Event
	info    Info
	spinner spinner.Model

	state    interpreter.State
	status   string
	lines    []transcriptLine
	heard    int
	warnings int
	err      string

	width    int
	height   int
	quitting bool
}

// New creates the UI model
func New(control Control, events <-chan interpreter.Event, info Info) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	return Model{
		control: control,
		events:  events,
		info:    info,
		spinner: s,
		state:   interpreter.StateIdle,
		status:  "Idle",
	}
}

// Init starts the spinner and the event subscription
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.apply(interpreter.Event(msg))
		return m, waitForEvent(m.events)

	case controlMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("%s: %v", msg.action, msg.err)
		} else {
			m.err = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.state.IsActive() {
			return m, tea.Sequence(m.stop(), tea.Quit)
		}
		return m, tea.Quit

	case "s":
		if m.state.IsActive() {
			return m, nil
		}
		m.err = ""
		return m, m.start()

	case "x":
		if !m.state.IsActive() {
			return m, nil
		}
		m.state = interpreter.StateStopping
		return m, m.stop()

	case "c":
		m.lines = nil
		return m, nil
	}
	return m, nil
}

func (m Model) start() tea.Cmd {
	control := m.control
	return func() tea.Msg {
		_, err := control.Start()
		return controlMsg{action: "start", err: err}
	}
}

// stop blocks up to the stop grace period, so it runs as a command
func (m Model) stop() tea.Cmd {
	control := m.control
	return func() tea.Msg {
		return controlMsg{action: "stop", err: control.Stop()}
	}
}

func (m *Model) apply(e interpreter.Event) {
	m.status = e.Status()

	switch e.Type {
	case interpreter.EventInitializing:
		m.state = interpreter.StateInitializing
		m.heard = 0
		m.warnings = 0
	case interpreter.EventListening:
		m.state = interpreter.StateListening
	case interpreter.EventHeard:
		m.heard++
		m.push(transcriptLine{source: e.Source, translation: e.Translation, at: e.Time})
		m.status = "Listening"
	case interpreter.EventWarning:
		m.warnings++
		m.push(transcriptLine{warning: e.Reason, at: e.Time})
		m.status = "Listening"
	case interpreter.EventStopped:
		m.state = interpreter.StateStopped
	case interpreter.EventFailed:
		m.state = interpreter.StateFailed
		m.err = e.Reason
	}
}

func (m *Model) push(line transcriptLine) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxHistory {
		m.lines = m.lines[len(m.lines)-maxHistory:]
	}
}

func (m Model) transcriptLines() int {
	if m.height <= 0 {
		return defaultTranscriptLines
	}
	// header, status, devices, box border, help
	n := (m.height - 9) / 2
	if n < 1 {
		n = 1
	}
	return n
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	var b strings.Builder

	title := TitleStyle.Render("Dolmetscher")
	pair := SubtitleStyle.Render(fmt.Sprintf("%s → %s", m.info.Source, m.info.Target))
	b.WriteString(title + "  " + pair + "\n\n")

	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("in: %s   out: %s", m.info.Input, m.info.Output)) + "\n")

	box := BoxStyle
	if m.state == interpreter.StateListening {
		box = ActiveBoxStyle
	}
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	b.WriteString(box.Render(m.renderTranscript()) + "\n")

	if m.err != "" {
		b.WriteString(RenderError(m.err) + "\n")
	}

	b.WriteString(RenderHelp("s start • x stop • c clear • q quit"))
	return b.String()
}

func (m Model) renderStatus() string {
	indicator := m.state.Icon()
	if m.state == interpreter.StateInitializing || m.state == interpreter.StateStopping {
		indicator = m.spinner.View()
	}

	status := strings.ReplaceAll(m.status, "\n", " ")
	counts := fmt.Sprintf("heard %d · warnings %d", m.heard, m.warnings)
	return StatusBarStyle.Render(fmt.Sprintf("%s %s", indicator, StateStyle(m.state).Render(m.state.String()))) +
		" " + status + "  " + SubtitleStyle.Render(counts)
}

func (m Model) renderTranscript() string {
	if len(m.lines) == 0 {
		return SubtitleStyle.Render("Nothing heard yet")
	}

	lines := m.lines
	if n := m.transcriptLines(); len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		if l.warning != "" {
			b.WriteString(WarningStyle.Render("! " + l.warning))
			continue
		}
		b.WriteString(SubtitleStyle.Render(l.at.Format("15:04:05")) + " " + SourceStyle.Render(l.source) + "\n")
		b.WriteString(TranslationStyle.Render("→ " + l.translation))
	}
	return b.String()
}

func waitForEvent(events <-chan interpreter.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// Run starts the UI on the alternate screen and blocks until it quits
func Run(control Control, bridge *Bridge, info Info) error {
	p := tea.NewProgram(New(control, bridge.Events(), info), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
