// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     stt
// Description: Speech-to-Text engines and configuration
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter/vad"
)

// Engine names
const (
	EngineWhisperCLI  = "whisper-cli"
	EngineWhisperHTTP = "whisper-http"
)

// Transcriber converts one utterance of PCM audio to text
type Transcriber interface {
	// Transcribe converts 16 kHz mono samples to text
	Transcribe(ctx context.Context, samples []int16) (string, error)

	// Close releases resources
	Close() error
}

// Config holds STT configuration
type Config struct {
	// Engine is whisper-cli or whisper-http
	Engine string

	// WhisperBinary overrides the whisper.cpp binary lookup
	WhisperBinary string

	// ServerURL is the base URL of the whisper HTTP server
	ServerURL string

	// Language is the source language (e.g. "ru")
	Language string

	// SampleRate is the expected audio sample rate
	SampleRate int

	// Threads is the number of decoder threads
	Threads int

	// Timeout bounds a single transcription
	Timeout time.Duration

	// VAD configures utterance endpointing
	VAD vad.Config

	// PreRoll is the audio kept from before speech onset
	PreRoll time.Duration

	// PartialInterval emits partial hypotheses while speaking (0 = off)
	PartialInterval time.Duration
}

// DefaultConfig returns default STT configuration
func DefaultConfig() Config {
	return Config{
		Engine:     EngineWhisperCLI,
		ServerURL:  "http://localhost:8178",
		Language:   "ru",
		SampleRate: 16000,
		Threads:    4,
		Timeout:    30 * time.Second,
		VAD:        vad.DefaultConfig(),
		PreRoll:    256 * time.Millisecond,
	}
}

// NewTranscriber creates the transcriber selected by cfg.Engine
func NewTranscriber(cfg Config, modelPath string) (Transcriber, error) {
	switch cfg.Engine {
	case EngineWhisperCLI, "":
		return NewWhisperCLI(cfg, modelPath)
	case EngineWhisperHTTP:
		return NewWhisperHTTP(cfg, modelPath), nil
	default:
		return nil, fmt.Errorf("unknown STT engine: %s", cfg.Engine)
	}
}

var (
	// [00:00:00.000 --> 00:00:05.000]
	timestampRe = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}\]`)

	// [BLANK_AUDIO], [Music], (музыка), *laughs*
	annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)
)

// cleanTranscript strips timestamps and non-speech annotations and joins lines
func cleanTranscript(text string) string {
	text = timestampRe.ReplaceAllString(text, " ")
	text = annotationRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
