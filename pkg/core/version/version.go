// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     version
// Description: Central version management for binary and components
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants for the binary and its components
const (
	// Application version
	App = "0.3.0"

	// Component versions
	Pipeline  = "0.3.0"
	Recognize = "0.2.0"
	Translate = "0.2.0"
	Speech    = "0.2.0"
	Server    = "0.1.0"
)

// Set by the linker: -ldflags "-X github.com/msto63/dolmetscher/pkg/core/version.Commit=..."
var (
	Commit    = "dev"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "pipeline":
		return Pipeline
	case "stt", "recognize":
		return Recognize
	case "translate":
		return Translate
	case "tts", "speech":
		return Speech
	case "server":
		return Server
	default:
		return App
	}
}

// String returns the full version line printed by `dolmetscher version`
func String() string {
	return fmt.Sprintf("dolmetscher %s (commit %s, built %s, %s/%s, %s)",
		App, Commit, BuildDate, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
