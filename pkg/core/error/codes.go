// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     error
// Description: Error codes for the interpretation pipeline
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown  Code = "UNKNOWN"
	CodeInternal Code = "INTERNAL"
	CodeTimeout  Code = "TIMEOUT"

	// Startup and capture
	CodeDeviceUnavailable  Code = "DEVICE_UNAVAILABLE"
	CodeModelMissing       Code = "MODEL_MISSING"
	CodeCaptureFailure     Code = "CAPTURE_FAILURE"
	CodeRecognitionFailure Code = "RECOGNITION_FAILURE"

	// Per-utterance processing
	CodeTranslationFailed   Code = "TRANSLATION_FAILED"
	CodeModelDownloadFailed Code = "MODEL_DOWNLOAD_FAILED"
	CodeSpeechOutputFailure Code = "SPEECH_OUTPUT_FAILURE"

	// Lifecycle and configuration
	CodeInvalidState  Code = "INVALID_STATE"
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid checks whether the code is one of the known codes
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeInternal, CodeTimeout,
		CodeDeviceUnavailable, CodeModelMissing, CodeCaptureFailure, CodeRecognitionFailure,
		CodeTranslationFailed, CodeModelDownloadFailed, CodeSpeechOutputFailure,
		CodeInvalidState, CodeInvalidConfig:
		return true
	}
	return false
}

// IsFatal reports whether an error with this code ends a pipeline run.
// Device, model, capture and decoder failures are fatal; everything that
// happens to a single utterance is not.
func (c Code) IsFatal() bool {
	switch c {
	case CodeDeviceUnavailable, CodeModelMissing, CodeCaptureFailure, CodeRecognitionFailure:
		return true
	}
	return false
}

// IsRetryable reports whether the caller may retry the failed operation
func (c Code) IsRetryable() bool {
	switch c {
	case CodeModelDownloadFailed, CodeTranslationFailed, CodeTimeout:
		return true
	}
	return false
}
