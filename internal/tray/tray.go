// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tray
// Description: System tray front-end using fyne.io/systray
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tray

import (
	"strings"
	"sync"

	"fyne.io/systray"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// Callbacks are invoked from the tray menu
type Callbacks struct {
	OnToggle func()
	OnQuit   func()
}

// App is the system tray application. It implements interpreter.Sink.
type App struct {
	callbacks Callbacks
	title     string

	mu         sync.Mutex
	ready      bool
	status     string
	state      interpreter.State
	menuStatus *systray.MenuItem
	menuPair   *systray.MenuItem
	menuToggle *systray.MenuItem
	menuQuit   *systray.MenuItem
}

// New creates a tray application. Title names the language pair.
func New(title string, callbacks Callbacks) *App {
	return &App{
		callbacks: callbacks,
		title:     title,
		status:    "Idle",
		state:     interpreter.StateIdle,
	}
}

// Run starts the tray (blocking). It must run on the main goroutine.
func (a *App) Run() {
	systray.Run(a.onReady, a.onExit)
}

func (a *App) onReady() {
	a.mu.Lock()
	defer a.mu.Unlock()

	systray.SetIcon(createIcon(a.state))
	systray.SetTitle("")
	systray.SetTooltip("Dolmetscher " + a.title)

	a.menuStatus = systray.AddMenuItem("Status: "+a.status, "Current status")
	a.menuStatus.Disable()

	a.menuPair = systray.AddMenuItem("Language: "+a.title, "Language pair")
	a.menuPair.Disable()

	systray.AddSeparator()
	a.menuToggle = systray.AddMenuItem(toggleLabel(a.state), "Start or stop interpreting")

	systray.AddSeparator()
	a.menuQuit = systray.AddMenuItem("Quit", "Quit Dolmetscher")

	a.ready = true
	go a.handleClicks(a.menuToggle, a.menuQuit)
}

func (a *App) handleClicks(toggle, quit *systray.MenuItem) {
	for {
		select {
		case <-toggle.ClickedCh:
			if a.callbacks.OnToggle != nil {
				a.callbacks.OnToggle()
			}
		case <-quit.ClickedCh:
			if a.callbacks.OnQuit != nil {
				a.callbacks.OnQuit()
			}
			systray.Quit()
			return
		}
	}
}

func (a *App) onExit() {
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()
}

// Publish implements interpreter.Sink
func (a *App) Publish(e interpreter.Event) {
	state, ok := stateOf(e)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.status = statusLine(e)
	if ok {
		a.state = state
	}
	if !a.ready {
		return
	}

	a.menuStatus.SetTitle("Status: " + a.status)
	a.menuToggle.SetTitle(toggleLabel(a.state))
	systray.SetIcon(createIcon(a.state))
}

// Quit quits the system tray
func (a *App) Quit() {
	systray.Quit()
}

func stateOf(e interpreter.Event) (interpreter.State, bool) {
	switch e.Type {
	case interpreter.EventInitializing:
		return interpreter.StateInitializing, true
	case interpreter.EventListening:
		return interpreter.StateListening, true
	case interpreter.EventStopped:
		return interpreter.StateStopped, true
	case interpreter.EventFailed:
		return interpreter.StateFailed, true
	}
	return 0, false
}

// statusLine keeps menu titles on one line
func statusLine(e interpreter.Event) string {
	s := strings.ReplaceAll(e.Status(), "\n", " ")
	if r := []rune(s); len(r) > 60 {
		s = string(r[:59]) + "…"
	}
	return s
}

func toggleLabel(s interpreter.State) string {
	if s.IsActive() {
		return "Stop"
	}
	return "Start"
}
