package error

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("device busy")

	if err.Error() != "device busy" {
		t.Errorf("Error() = %q, want %q", err.Error(), "device busy")
	}
	if err.Code() != CodeUnknown {
		t.Errorf("Code() = %v, want %v", err.Code(), CodeUnknown)
	}
	if err.Severity() != SeverityMedium {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityMedium)
	}
	if err.Timestamp().IsZero() {
		t.Error("Timestamp() should not be zero")
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		message  string
		wantNil  bool
		wantMsg  string
		wantCode Code
	}{
		{
			name:    "wrap nil error",
			err:     nil,
			message: "context",
			wantNil: true,
		},
		{
			name:     "wrap standard error",
			err:      errors.New("eof"),
			message:  "read frame",
			wantMsg:  "read frame: eof",
			wantCode: CodeUnknown,
		},
		{
			name:     "wrap coded error inherits code",
			err:      New("no model").WithCode(CodeModelMissing),
			message:  "open recognizer",
			wantMsg:  "open recognizer: no model",
			wantCode: CodeModelMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err, tt.message)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Wrap() = %v, want nil", got)
				}
				return
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.wantMsg)
			}
			if got.Code() != tt.wantCode {
				t.Errorf("Code() = %v, want %v", got.Code(), tt.wantCode)
			}
			if !errors.Is(got, tt.err) {
				t.Error("wrapped error should match its cause with errors.Is")
			}
		})
	}
}

func TestWithCode_SetsSeverity(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeModelMissing, SeverityCritical},
		{CodeCaptureFailure, SeverityHigh},
		{CodeTranslationFailed, SeverityMedium},
		{CodeInvalidState, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := New("x").WithCode(tt.code)
			if err.Severity() != tt.want {
				t.Errorf("Severity() = %v, want %v", err.Severity(), tt.want)
			}
		})
	}

	explicit := New("x").WithSeverity(SeverityLow).WithCode(CodeCaptureFailure)
	if explicit.Severity() != SeverityLow {
		t.Errorf("explicit severity overwritten: got %v", explicit.Severity())
	}
}

func TestGetCode_ThroughFmtWrapping(t *testing.T) {
	base := New("mic gone").WithCode(CodeDeviceUnavailable)
	wrapped := fmt.Errorf("start: %w", base)

	if GetCode(wrapped) != CodeDeviceUnavailable {
		t.Errorf("GetCode() = %v, want %v", GetCode(wrapped), CodeDeviceUnavailable)
	}
	if !HasCode(wrapped, CodeDeviceUnavailable) {
		t.Error("HasCode() = false, want true")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
	if GetSeverity(errors.New("plain")) != SeverityMedium {
		t.Error("plain errors should map to SeverityMedium")
	}
}

func TestCode_IsFatal(t *testing.T) {
	fatal := []Code{CodeDeviceUnavailable, CodeModelMissing, CodeCaptureFailure, CodeRecognitionFailure}
	for _, c := range fatal {
		if !c.IsFatal() {
			t.Errorf("%v.IsFatal() = false, want true", c)
		}
	}

	nonFatal := []Code{CodeTranslationFailed, CodeModelDownloadFailed, CodeSpeechOutputFailure, CodeUnknown}
	for _, c := range nonFatal {
		if c.IsFatal() {
			t.Errorf("%v.IsFatal() = true, want false", c)
		}
	}

	if !IsFatal(Wrap(New("x").WithCode(CodeCaptureFailure), "loop")) {
		t.Error("IsFatal() should see through Wrap")
	}
}

func TestCode_IsValid(t *testing.T) {
	if !CodeSpeechOutputFailure.IsValid() {
		t.Error("CodeSpeechOutputFailure should be valid")
	}
	if Code("NOPE").IsValid() {
		t.Error("unknown code should be invalid")
	}
}

func TestError_Is(t *testing.T) {
	sentinel := New("pipeline already running").WithCode(CodeInvalidState)
	other := New("pipeline already running").WithCode(CodeInvalidState)

	if !errors.Is(fmt.Errorf("start: %w", sentinel), sentinel) {
		t.Error("errors.Is should match the sentinel itself")
	}
	if !errors.Is(other, sentinel) {
		t.Error("errors.Is should match equal code and message")
	}
	if errors.Is(New("different").WithCode(CodeInvalidState), sentinel) {
		t.Error("errors.Is should not match a different message")
	}
}

func TestError_String(t *testing.T) {
	err := New("translate failed").
		WithCode(CodeTranslationFailed).
		WithOperation("translate").
		WithDetail("pair", "ru→en").
		WithDetail("attempt", 1)

	s := err.String()
	for _, want := range []string{"[TRANSLATION_FAILED]", "translate: translate failed", "attempt=1", "pair=ru→en"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	if len(err.Details()) != 2 {
		t.Errorf("Details() len = %d, want 2", len(err.Details()))
	}
}
