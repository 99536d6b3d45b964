// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     vad
// Description: WebRTC VAD implementation
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package vad

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/msto63/dolmetscher/internal/interpreter/audio"
)

var validRates = []int{8000, 16000, 32000, 48000}

// WebRTC implements Detector using WebRTC's VAD on 10 ms sub-frames.
// Samples that do not fill a sub-frame are carried into the next call.
type WebRTC struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
	ratio      float64
	pending    []int16
}

// NewWebRTC creates a new WebRTC VAD instance
func NewWebRTC(cfg Config) (*WebRTC, error) {
	validRate := false
	for _, r := range validRates {
		if cfg.SampleRate == r {
			validRate = true
			break
		}
	}
	if !validRate {
		return nil, fmt.Errorf("invalid sample rate %d, must be one of %v", cfg.SampleRate, validRates)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	// Set aggressiveness mode (0-3)
	mode := min(max(cfg.Mode, 0), 3)
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	ratio := cfg.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultConfig().Ratio
	}

	return &WebRTC{
		vad:        vad,
		sampleRate: cfg.SampleRate,
		mode:       mode,
		ratio:      ratio,
	}, nil
}

// IsSpeech implements Detector. The frame counts as speech when the share
// of voiced sub-frames reaches the configured ratio.
func (w *WebRTC) IsSpeech(samples []int16) (bool, error) {
	sub := w.subFrameSize()

	buf := append(w.pending, samples...)
	voiced, total := 0, 0

	i := 0
	for ; i+sub <= len(buf); i += sub {
		active, err := w.vad.Process(w.sampleRate, audio.Int16ToBytes(buf[i:i+sub]))
		if err != nil {
			return false, fmt.Errorf("VAD processing failed: %w", err)
		}
		total++
		if active {
			voiced++
		}
	}

	w.pending = append(w.pending[:0], buf[i:]...)

	if total == 0 {
		return false, nil
	}
	return float64(voiced)/float64(total) >= w.ratio, nil
}

// subFrameSize returns the sample count of 10 ms at the configured rate
func (w *WebRTC) subFrameSize() int {
	return w.sampleRate / 100
}

// Reset implements Detector
func (w *WebRTC) Reset() {
	w.pending = w.pending[:0]
}

// Close releases resources
func (w *WebRTC) Close() error {
	// WebRTC VAD doesn't require explicit cleanup
	w.pending = nil
	return nil
}

// Mode returns the current aggressiveness mode
func (w *WebRTC) Mode() int {
	return w.mode
}
