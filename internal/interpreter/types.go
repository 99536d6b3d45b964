// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Capability interfaces of the interpretation loop
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package interpreter

import "context"

// DeviceHandle identifies an audio input or output device.
// The pipeline never inspects it; an empty handle selects the system default.
type DeviceHandle string

// DefaultDevice selects the system default route
const DefaultDevice DeviceHandle = ""

// IsDefault reports whether the handle selects the system default route
func (h DeviceHandle) IsDefault() bool {
	return h == DefaultDevice || h == "default"
}

// String returns the handle or "default"
func (h DeviceHandle) String() string {
	if h.IsDefault() {
		return "default"
	}
	return string(h)
}

// AudioSource binds a capture device
type AudioSource interface {
	// Open binds the device. It fails with CodeDeviceUnavailable when the
	// device cannot be bound; it never falls back on its own.
	Open(ctx context.Context, device DeviceHandle) (CaptureStream, error)
}

// CaptureStream yields fixed-size PCM frames (16 kHz, mono, int16).
type CaptureStream interface {
	// ReadFrame blocks until samples are available and copies them into buf.
	// It returns (0, nil) once the stream is closed or ctx is cancelled.
	// A non-nil error is a capture failure.
	ReadFrame(ctx context.Context, buf []int16) (int, error)

	// Close releases the device. Safe to call concurrently with ReadFrame
	// and more than once.
	Close() error
}

// Recognizer opens streaming decoders for a model resource
type Recognizer interface {
	// Open fails with CodeModelMissing when modelPath does not exist
	Open(ctx context.Context, modelPath string) (RecognitionStream, error)
}

// RecognitionStream is a stateful streaming decoder. Frames must be passed
// strictly in capture order from a single goroutine.
type RecognitionStream interface {
	// Accept feeds one frame and returns zero or more results.
	// An error is fatal for the stream.
	Accept(ctx context.Context, frame []int16) ([]Result, error)

	// Close releases decoder resources. Safe after a fatal error.
	Close() error
}

// ResultKind tags a recognition result
type ResultKind int

const (
	// Partial is an in-progress hypothesis
	Partial ResultKind = iota
	// Final commits an utterance boundary
	Final
)

// String returns the kind name
func (k ResultKind) String() string {
	if k == Final {
		return "final"
	}
	return "partial"
}

// Result is a recognition hypothesis
type Result struct {
	Kind ResultKind
	Text string
}

// Translator translates one utterance
type Translator interface {
	// Translate may block while the model for the pair is provisioned.
	// Errors carry CodeTranslationFailed or CodeModelDownloadFailed.
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SpeakMode selects the speech queueing policy
type SpeakMode int

const (
	// Enqueue appends behind any pending speech
	Enqueue SpeakMode = iota
	// FlushAndSpeak cancels current and pending speech before speaking
	FlushAndSpeak
)

// String returns the mode name
func (m SpeakMode) String() string {
	if m == FlushAndSpeak {
		return "flush"
	}
	return "enqueue"
}

// SpeechOutput renders text to audible speech
type SpeechOutput interface {
	// Speak routes to route when available and falls back to the default
	// output silently. Errors carry CodeSpeechOutputFailure.
	Speak(ctx context.Context, text string, route DeviceHandle, mode SpeakMode) error
}
