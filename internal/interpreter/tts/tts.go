// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tts
// Description: Speech synthesis engines and rendering contract
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"fmt"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// Engine names
const (
	EnginePiper = "piper"
	EngineSay   = "say"
)

// Rendering is synthesized speech ready to be played
type Rendering interface {
	// Play blocks until the speech has been heard or ctx is cancelled
	Play(ctx context.Context, route interpreter.DeviceHandle) error
}

// Engine synthesizes text. Prepare does the synthesis work up front so
// that its failures reach the caller; playback happens later on the
// Speaker worker.
type Engine interface {
	Name() string
	Prepare(ctx context.Context, text string) (Rendering, error)
	Close() error
}

// Player plays PCM on an output route
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate int, route interpreter.DeviceHandle) error
}

// Config holds speech output configuration
type Config struct {
	Engine      string
	PiperBinary string
	PiperModel  string
	EspeakData  string
	Voice       string
	Rate        int
	SampleRate  int
	QueueSize   int
}

// DefaultConfig returns default speech configuration
func DefaultConfig() Config {
	return Config{
		Engine:     EnginePiper,
		Voice:      "Samantha",
		Rate:       180,
		SampleRate: 22050,
		QueueSize:  8,
	}
}

// NewEngine creates the configured engine
func NewEngine(cfg Config, player Player) (Engine, error) {
	switch cfg.Engine {
	case EnginePiper, "":
		return NewPiper(cfg, player)
	case EngineSay:
		return NewSay(cfg)
	default:
		return nil, fmt.Errorf("unknown speech engine: %s", cfg.Engine)
	}
}
