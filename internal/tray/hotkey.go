// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tray
// Description: Global start/stop hotkey
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tray

import (
	"fmt"
	"runtime"

	"golang.design/x/hotkey"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// ShortcutDescription names the toggle hotkey
const ShortcutDescription = "Ctrl+Shift+D"

// Hotkey toggles the interpreter from anywhere
type Hotkey struct {
	hk     *hotkey.Hotkey
	logger *logging.Logger
}

// RegisterHotkey registers Ctrl+Shift+D and calls toggle on every press.
// On macOS the hotkey is skipped; registration from a non-main thread
// crashes there, use the tray menu instead.
func RegisterHotkey(toggle func()) (*Hotkey, error) {
	logger := logging.New("hotkey")
	h := &Hotkey{logger: logger}

	if runtime.GOOS == "darwin" {
		logger.Info("Hotkey disabled on macOS (use the tray menu)")
		return h, nil
	}

	h.hk = hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeyD)
	if err := h.hk.Register(); err != nil {
		return nil, fmt.Errorf("failed to register hotkey: %w", err)
	}

	go func() {
		for range h.hk.Keydown() {
			logger.Debug("Hotkey pressed")
			toggle()
		}
	}()

	logger.Info("Hotkey registered", "shortcut", ShortcutDescription)
	return h, nil
}

// Unregister releases the hotkey
func (h *Hotkey) Unregister() {
	if h == nil || h.hk == nil {
		return
	}
	if err := h.hk.Unregister(); err != nil {
		h.logger.Warn("Failed to unregister hotkey", "error", err)
	}
}
