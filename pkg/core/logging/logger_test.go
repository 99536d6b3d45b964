package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevel_Constants(t *testing.T) {
	if LevelDebug != 0 {
		t.Errorf("LevelDebug = %d, want 0", LevelDebug)
	}
	if LevelError != 3 {
		t.Errorf("LevelError = %d, want 3", LevelError)
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"TRACE", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger := New("test-service")

	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Name() != "test-service" {
		t.Errorf("Name() = %v, want test-service", logger.Name())
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{
		ServiceName: "pipeline",
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
	})

	logger.Info("listening", "device", "default", "frames", 2048)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "listening" {
		t.Errorf("msg = %v, want listening", entry["msg"])
	}
	if entry["device"] != "default" {
		t.Errorf("device = %v, want default", entry["device"])
	}
	if entry["prefix"] != "pipeline" {
		t.Errorf("prefix = %v, want pipeline", entry["prefix"])
	}
}

func TestLogger_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{ServiceName: "test", Level: "debug", Output: &buf})

	quiet := logger.WithLevel(LevelError)
	if quiet.Name() != "test" {
		t.Errorf("name should be preserved: got %v", quiet.Name())
	}

	quiet.Info("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at error level")
	}

	quiet.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("error should pass at error level")
	}
}

func TestLogger_Named(t *testing.T) {
	logger := NewWithConfig(LoggerConfig{ServiceName: "pipeline"})
	child := logger.Named("stt")

	if child.Name() != "pipeline.stt" {
		t.Errorf("Name() = %v, want pipeline.stt", child.Name())
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(LoggerConfig{ServiceName: "test", Format: "logfmt", Output: &buf})

	// Trailing key and non-string key must not panic
	logger.Info("message", "key1", "value1", 42, "x", "dangling")

	out := buf.String()
	if !strings.Contains(out, "key1=value1") {
		t.Errorf("output %q missing key1=value1", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("output %q should drop dangling key", out)
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize(nil); got != nil {
		t.Errorf("sanitize(nil) = %v, want nil", got)
	}
	got := sanitize([]interface{}{"a", 1, "b"})
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
