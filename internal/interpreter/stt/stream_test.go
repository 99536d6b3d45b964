package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/vad"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
)

const frameSize = 2048 // 128 ms at 16 kHz

// fakeTranscriber returns queued texts and records what it was given
type fakeTranscriber struct {
	mu     sync.Mutex
	texts  []string
	err    error
	calls  [][]int16
	closed bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, samples)
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func (f *fakeTranscriber) Close() error {
	f.closed = true
	return nil
}

// levelDetector treats frames with a non-zero first sample as speech
type levelDetector struct {
	closed bool
}

func (d *levelDetector) IsSpeech(samples []int16) (bool, error) {
	return len(samples) > 0 && samples[0] != 0, nil
}
func (d *levelDetector) Reset()       {}
func (d *levelDetector) Close() error { d.closed = true; return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.PreRoll = 128 * time.Millisecond
	cfg.VAD = vad.Config{
		SampleRate:   16000,
		Silence:      256 * time.Millisecond, // 2 frames
		MinSpeech:    256 * time.Millisecond, // 2 frames
		MaxUtterance: 10 * 128 * time.Millisecond,
	}
	return cfg
}

func newTestRecognizer(t *testing.T, cfg Config, tr *fakeTranscriber, det *levelDetector) (*Recognizer, string) {
	t.Helper()
	model := filepath.Join(t.TempDir(), "ggml-test.bin")
	if err := os.WriteFile(model, []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRecognizer(cfg,
		WithTranscriberFactory(func(Config, string) (Transcriber, error) { return tr, nil }),
		WithDetectorFactory(func(vad.Config) (vad.Detector, error) { return det, nil }),
	)
	return r, model
}

func frameOf(v int16) []int16 {
	f := make([]int16, frameSize)
	for i := range f {
		f[i] = v
	}
	return f
}

// feed sends '#' speech frames and '.' silent frames, collecting results
func feed(t *testing.T, s interpreter.RecognitionStream, pattern string) []interpreter.Result {
	t.Helper()
	var out []interpreter.Result
	for _, c := range pattern {
		var f []int16
		if c == '#' {
			f = frameOf(1000)
		} else {
			f = frameOf(0)
		}
		res, err := s.Accept(context.Background(), f)
		if err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
		out = append(out, res...)
	}
	return out
}

func TestRecognizer_OpenMissingModel(t *testing.T) {
	r := NewRecognizer(testConfig())

	tests := []string{"", filepath.Join(t.TempDir(), "missing.bin")}
	for _, path := range tests {
		_, err := r.Open(context.Background(), path)
		if !mdwerror.HasCode(err, mdwerror.CodeModelMissing) {
			t.Errorf("Open(%q) code = %v, want MODEL_MISSING", path, mdwerror.GetCode(err))
		}
	}
}

func TestRecognizer_OpenTranscriberFailure(t *testing.T) {
	model := filepath.Join(t.TempDir(), "m.bin")
	os.WriteFile(model, nil, 0644)

	r := NewRecognizer(testConfig(), WithTranscriberFactory(func(Config, string) (Transcriber, error) {
		return nil, errors.New("whisper binary not found")
	}))

	_, err := r.Open(context.Background(), model)
	if !mdwerror.HasCode(err, mdwerror.CodeRecognitionFailure) {
		t.Errorf("code = %v, want RECOGNITION_FAILURE", mdwerror.GetCode(err))
	}
}

func TestStream_SpeechThenSilenceYieldsOneFinal(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"  привет как дела  "}}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, err := r.Open(context.Background(), model)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	results := feed(t, s, "..####......")

	if len(results) != 1 {
		t.Fatalf("results = %v, want exactly one", results)
	}
	if results[0].Kind != interpreter.Final || results[0].Text != "привет как дела" {
		t.Errorf("result = %+v, want trimmed Final", results[0])
	}

	// pre-roll (1 frame) + 4 speech + 2 silence
	if got := len(tr.calls[0]); got != 7*frameSize {
		t.Errorf("transcribed samples = %d, want %d", got, 7*frameSize)
	}
	if tr.calls[0][0] != 0 || tr.calls[0][frameSize] != 1000 {
		t.Error("utterance should start with the pre-roll frame")
	}
}

func TestStream_BlankTranscriptDropped(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"[BLANK_AUDIO]"}}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	if results := feed(t, s, "###.."); len(results) != 0 {
		t.Errorf("results = %v, want none for blank transcript", results)
	}
	if len(tr.calls) != 1 {
		t.Errorf("transcribe calls = %d, want 1", len(tr.calls))
	}
}

func TestStream_ShortSpeechDiscarded(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"noise"}}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	if results := feed(t, s, "#....."); len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}
	if len(tr.calls) != 0 {
		t.Errorf("transcribe calls = %d, want 0", len(tr.calls))
	}
}

func TestStream_MaxUtteranceCommits(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"long", "tail"}}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	results := feed(t, s, "##########")
	if len(results) != 1 || results[0].Text != "long" {
		t.Fatalf("results = %v, want one forced Final", results)
	}

	// Continuing speech opens a new utterance
	results = feed(t, s, "###..")
	if len(results) != 1 || results[0].Text != "tail" {
		t.Errorf("results = %v, want second Final", results)
	}
}

func TestStream_MultipleUtterancesInOrder(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"один", "два"}}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	results := feed(t, s, "###..###..")
	if len(results) != 2 || results[0].Text != "один" || results[1].Text != "два" {
		t.Errorf("results = %v, want один then два", results)
	}
}

func TestStream_TranscriptionErrorIsFatal(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("server down")}
	r, model := newTestRecognizer(t, testConfig(), tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	feed(t, s, "###.")
	_, err := s.Accept(context.Background(), frameOf(0))
	if !mdwerror.HasCode(err, mdwerror.CodeRecognitionFailure) {
		t.Errorf("code = %v, want RECOGNITION_FAILURE", mdwerror.GetCode(err))
	}
}

func TestStream_Partials(t *testing.T) {
	cfg := testConfig()
	cfg.PartialInterval = 256 * time.Millisecond
	tr := &fakeTranscriber{texts: []string{"при", "привет", "привет мир"}}
	r, model := newTestRecognizer(t, cfg, tr, &levelDetector{})

	s, _ := r.Open(context.Background(), model)
	defer s.Close()

	results := feed(t, s, "####..")

	var partials, finals int
	for _, res := range results {
		switch res.Kind {
		case interpreter.Partial:
			partials++
		case interpreter.Final:
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("finals = %d, want 1", finals)
	}
	if partials == 0 {
		t.Error("expected at least one partial")
	}
	if last := results[len(results)-1]; last.Kind != interpreter.Final {
		t.Errorf("last result = %v, want Final", last)
	}
}

func TestStream_Close(t *testing.T) {
	tr := &fakeTranscriber{}
	det := &levelDetector{}
	r, model := newTestRecognizer(t, testConfig(), tr, det)

	s, _ := r.Open(context.Background(), model)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !tr.closed || !det.closed {
		t.Error("Close() should release transcriber and detector")
	}
}

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  привет  ", "привет"},
		{"[00:00:00.000 --> 00:00:02.000]  привет\n[00:00:02.000 --> 00:00:04.000] мир", "привет мир"},
		{"[BLANK_AUDIO]", ""},
		{"(музыка) да", "да"},
		{"*laughs* ok", "ok"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := cleanTranscript(tt.in); got != tt.want {
			t.Errorf("cleanTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
