// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Pipeline configuration
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package interpreter

import (
	"time"

	"github.com/msto63/dolmetscher/pkg/core/config"
)

// Config holds the settings of one pipeline instance
type Config struct {
	// ModelPath is the recognition model resource; it must exist
	ModelPath string

	// Source and Target are the language pair, e.g. "ru" and "en"
	Source string
	Target string

	// FrameSize is the number of samples read per loop iteration
	FrameSize int

	// StopGrace bounds how long Stop waits for the loop to finish
	StopGrace time.Duration
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Source:    "ru",
		Target:    "en",
		FrameSize: 2048,
		StopGrace: 2 * time.Second,
	}
}

// ConfigFrom derives a pipeline configuration from the application config
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}

	c.ModelPath = cfg.Recognition.ModelPath
	if cfg.Translation.Source != "" {
		c.Source = cfg.Translation.Source
	}
	if cfg.Translation.Target != "" {
		c.Target = cfg.Translation.Target
	}
	if cfg.Audio.FrameSize > 0 {
		c.FrameSize = cfg.Audio.FrameSize
	}
	if cfg.Pipeline.StopGrace.Duration > 0 {
		c.StopGrace = cfg.Pipeline.StopGrace.Duration
	}
	return c
}
