// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     vad
// Description: Voice activity detection and utterance endpointing
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package vad

import (
	"time"
)

// Detector classifies a PCM frame as speech or non-speech
type Detector interface {
	// IsSpeech processes 16-bit samples in capture order
	IsSpeech(samples []int16) (bool, error)

	// Reset drops state carried between calls
	Reset()

	// Close releases resources
	Close() error
}

// Config holds VAD configuration
type Config struct {
	// SampleRate is the audio sample rate (8000, 16000, 32000 or 48000)
	SampleRate int

	// Mode/Aggressiveness (0-3, higher = more aggressive filtering)
	Mode int

	// Ratio is the share of voiced 10 ms sub-frames that marks a frame as speech
	Ratio float64

	// Silence is how much non-speech audio ends an utterance
	Silence time.Duration

	// MinSpeech is the minimum speech an utterance needs to be kept
	MinSpeech time.Duration

	// MaxUtterance force-commits utterances that run longer
	MaxUtterance time.Duration
}

// DefaultConfig returns default VAD configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		Mode:         2, // Moderate aggressiveness
		Ratio:        0.5,
		Silence:      800 * time.Millisecond,
		MinSpeech:    300 * time.Millisecond,
		MaxUtterance: 15 * time.Second,
	}
}

// Decision is the tracker's verdict after a frame
type Decision int

const (
	// Idle means no utterance is in progress
	Idle Decision = iota
	// Started means the frame opened an utterance
	Started
	// Continue means the utterance is still open
	Continue
	// Ended means trailing silence closed an utterance long enough to keep
	Ended
	// Discarded means trailing silence closed an utterance that was too short
	Discarded
	// Truncated means the utterance hit MaxUtterance and must be committed
	Truncated
)

// String returns the decision name
func (d Decision) String() string {
	switch d {
	case Idle:
		return "idle"
	case Started:
		return "started"
	case Continue:
		return "continue"
	case Ended:
		return "ended"
	case Discarded:
		return "discarded"
	case Truncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Tracker turns per-frame speech flags into utterance boundaries.
// It counts audio time, so results do not depend on processing speed.
type Tracker struct {
	config   Config
	speaking bool
	speech   time.Duration
	silence  time.Duration
	total    time.Duration
}

// NewTracker creates a new speech tracker
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		config: cfg,
	}
}

// Update advances the tracker by one frame of length d
func (t *Tracker) Update(isSpeech bool, d time.Duration) Decision {
	if !t.speaking {
		if !isSpeech {
			return Idle
		}
		t.speaking = true
		t.speech = d
		t.silence = 0
		t.total = d
		return Started
	}

	t.total += d
	if isSpeech {
		t.speech += d
		t.silence = 0
	} else {
		t.silence += d
	}

	if t.config.MaxUtterance > 0 && t.total >= t.config.MaxUtterance {
		t.Reset()
		return Truncated
	}

	if t.silence >= t.config.Silence {
		valid := t.speech >= t.config.MinSpeech
		t.Reset()
		if valid {
			return Ended
		}
		return Discarded
	}

	return Continue
}

// Speaking reports whether an utterance is open
func (t *Tracker) Speaking() bool {
	return t.speaking
}

// SpeechDuration returns the voiced audio time of the open utterance
func (t *Tracker) SpeechDuration() time.Duration {
	return t.speech
}

// Elapsed returns the total audio time of the open utterance
func (t *Tracker) Elapsed() time.Duration {
	return t.total
}

// Reset resets the tracker state
func (t *Tracker) Reset() {
	t.speaking = false
	t.speech = 0
	t.silence = 0
	t.total = 0
}
