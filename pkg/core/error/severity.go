// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     error
// Description: Error severity levels
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow indicates a minor error that doesn't affect the running pipeline
	SeverityLow Severity = iota

	// SeverityMedium indicates a dropped utterance or a degraded output
	SeverityMedium

	// SeverityHigh indicates an error that stops the pipeline
	SeverityHigh

	// SeverityCritical indicates an error that makes the program unusable
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// GetSeverityFromCode returns the default severity for a code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodeModelMissing:
		return SeverityCritical
	case CodeDeviceUnavailable, CodeCaptureFailure, CodeRecognitionFailure, CodeInternal:
		return SeverityHigh
	case CodeTranslationFailed, CodeModelDownloadFailed, CodeSpeechOutputFailure, CodeTimeout:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
