// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     sink
// Description: Status sinks for pipeline events
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package sink delivers pipeline status events to the console, to
// WebSocket observers and to an MQTT broker.
package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	targetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Console prints status lines to a writer
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

// NewConsole creates a console sink. Plain output skips styling.
func NewConsole(out io.Writer, plain bool) *Console {
	return &Console{out: out, plain: plain}
}

// Publish implements interpreter.Sink
func (c *Console) Publish(e interpreter.Event) {
	line := c.render(e)
	if line == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *Console) render(e interpreter.Event) string {
	status := e.Status()
	if status == "" || c.plain {
		return status
	}

	ts := timeStyle.Render(e.Time.Format("15:04:05"))

	switch e.Type {
	case interpreter.EventHeard:
		return fmt.Sprintf("%s %s\n         %s",
			ts,
			sourceStyle.Render("🎤 "+e.Source),
			targetStyle.Render("→ "+e.Translation))
	case interpreter.EventWarning:
		return ts + " " + warningStyle.Render(status)
	case interpreter.EventFailed:
		return ts + " " + failedStyle.Render(status)
	default:
		return ts + " " + stateStyle.Render(strings.TrimSpace(status))
	}
}
