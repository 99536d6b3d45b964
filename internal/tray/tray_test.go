package tray

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

func TestCreateIcon(t *testing.T) {
	tests := []struct {
		state interpreter.State
		want  [4]uint8
	}{
		{interpreter.StateIdle, [4]uint8{255, 255, 255, 255}},
		{interpreter.StateListening, [4]uint8{255, 59, 48, 255}},
		{interpreter.StateInitializing, [4]uint8{0, 122, 255, 255}},
		{interpreter.StateFailed, [4]uint8{255, 149, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			img, err := png.Decode(bytes.NewReader(createIcon(tt.state)))
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != iconWidth || b.Dy() != iconHeight {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), iconWidth, iconHeight)
			}

			// Top-left pixel of the glyph
			r, g, b, a := img.At(3, 4).RGBA()
			got := [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
			if got != tt.want {
				t.Errorf("glyph color = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublish_BeforeReady(t *testing.T) {
	app := New("ru → en", Callbacks{})

	app.Publish(interpreter.Event{Type: interpreter.EventListening})
	if app.state != interpreter.StateListening {
		t.Errorf("state = %v, want Listening", app.state)
	}

	app.Publish(interpreter.Event{Type: interpreter.EventHeard, Source: "привет", Translation: "hello"})
	if app.state != interpreter.StateListening {
		t.Errorf("Heard changed state to %v", app.state)
	}
	if app.status != "Heard: привет → hello" {
		t.Errorf("status = %q", app.status)
	}
}

func TestStatusLine(t *testing.T) {
	long := strings.Repeat("ж", 100)
	got := statusLine(interpreter.Event{Type: interpreter.EventWarning, Reason: long})
	if n := len([]rune(got)); n != 60 {
		t.Errorf("len = %d, want 60", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("statusLine() = %q, want ellipsis", got)
	}
}

func TestToggleLabel(t *testing.T) {
	tests := []struct {
		state interpreter.State
		want  string
	}{
		{interpreter.StateIdle, "Start"},
		{interpreter.StateInitializing, "Stop"},
		{interpreter.StateListening, "Stop"},
		{interpreter.StateStopped, "Start"},
		{interpreter.StateFailed, "Start"},
	}
	for _, tt := range tests {
		if got := toggleLabel(tt.state); got != tt.want {
			t.Errorf("toggleLabel(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
