package interpreter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
)

type fakeCapture struct {
	interval time.Duration
	failAt   int // read index returning a capture failure, -1 = never
	endAt    int // read index returning end of stream, -1 = never

	reads     atomic.Int32
	closeOnce sync.Once
	closed    chan struct{}
	closes    atomic.Int32
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{
		interval: time.Millisecond,
		failAt:   -1,
		endAt:    -1,
		closed:   make(chan struct{}),
	}
}

func (c *fakeCapture) ReadFrame(ctx context.Context, buf []int16) (int, error) {
	idx := int(c.reads.Add(1)) - 1
	if idx == c.failAt {
		return 0, mdwerror.New("device unplugged").WithCode(mdwerror.CodeCaptureFailure)
	}
	if idx == c.endAt {
		return 0, nil
	}

	select {
	case <-ctx.Done():
		return 0, nil
	case <-c.closed:
		return 0, nil
	case <-time.After(c.interval):
	}

	for i := range buf {
		buf[i] = int16(idx)
	}
	return len(buf), nil
}

func (c *fakeCapture) Close() error {
	c.closes.Add(1)
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeCapture) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeAudio struct {
	capture *fakeCapture
	openErr error
	block   bool // Open waits for ctx cancellation
	opens   atomic.Int32
}

func (a *fakeAudio) Open(ctx context.Context, device DeviceHandle) (CaptureStream, error) {
	a.opens.Add(1)
	if a.block {
		<-ctx.Done()
		return a.capture, nil
	}
	if a.openErr != nil {
		return nil, a.openErr
	}
	return a.capture, nil
}

type fakeStream struct {
	mu      sync.Mutex
	script  map[int][]Result
	accepts int
	frames  [][]int16

	acceptErrAt int
	blockAt     int
	unblock     chan struct{}

	closes atomic.Int32
}

func newFakeStream(script map[int][]Result) *fakeStream {
	return &fakeStream{
		script:      script,
		acceptErrAt: -1,
		blockAt:     -1,
		unblock:     make(chan struct{}),
	}
}

func (s *fakeStream) Accept(ctx context.Context, frame []int16) ([]Result, error) {
	s.mu.Lock()
	idx := s.accepts
	s.accepts++
	s.frames = append(s.frames, append([]int16(nil), frame[:1]...))
	s.mu.Unlock()

	if idx == s.blockAt {
		<-s.unblock
	}
	if idx == s.acceptErrAt {
		return nil, mdwerror.New("decoder crashed").WithCode(mdwerror.CodeRecognitionFailure)
	}
	return s.script[idx], nil
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *fakeStream) firstSamples() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.frames))
	for i, f := range s.frames {
		out[i] = f[0]
	}
	return out
}

type fakeRecognizer struct {
	stream  *fakeStream
	openErr error
	opens   atomic.Int32
}

func (r *fakeRecognizer) Open(ctx context.Context, modelPath string) (RecognitionStream, error) {
	r.opens.Add(1)
	if r.openErr != nil {
		return nil, r.openErr
	}
	return r.stream, nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	dict  map[string]string
}

func (t *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, source+">"+target+":"+text)
	if err, ok := t.fail[text]; ok {
		return "", err
	}
	if out, ok := t.dict[text]; ok {
		return out, nil
	}
	return "EN(" + text + ")", nil
}

func (t *fakeTranslator) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

type spoken struct {
	text  string
	route DeviceHandle
	mode  SpeakMode
}

type fakeSpeech struct {
	mu    sync.Mutex
	calls []spoken
	err   error
}

func (s *fakeSpeech) Speak(ctx context.Context, text string, route DeviceHandle, mode SpeakMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, spoken{text: text, route: route, mode: mode})
	return s.err
}

func (s *fakeSpeech) Calls() []spoken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spoken(nil), s.calls...)
}

type harness struct {
	capture    *fakeCapture
	audio      *fakeAudio
	stream     *fakeStream
	recognizer *fakeRecognizer
	translator *fakeTranslator
	speech     *fakeSpeech
	cfg        Config
}

func newHarness(t *testing.T, script map[int][]Result) *harness {
	t.Helper()

	model := filepath.Join(t.TempDir(), "ggml-small.bin")
	if err := os.WriteFile(model, []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}

	capture := newFakeCapture()
	stream := newFakeStream(script)
	return &harness{
		capture:    capture,
		audio:      &fakeAudio{capture: capture},
		stream:     stream,
		recognizer: &fakeRecognizer{stream: stream},
		translator: &fakeTranslator{},
		speech:     &fakeSpeech{},
		cfg: Config{
			ModelPath: model,
			Source:    "ru",
			Target:    "en",
			FrameSize: 160,
			StopGrace: time.Second,
		},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Audio:      h.audio,
		Recognizer: h.recognizer,
		Translator: h.translator,
		Speech:     h.speech,
	}
}

func (h *harness) pipeline() *Pipeline {
	return New(h.cfg, h.deps())
}

// collect reads events until the channel closes
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			t.Fatalf("timeout collecting events, got %d", len(out))
			return out
		}
	}
}

// collectAsync drains events in the background
func collectAsync(t *testing.T, p *Pipeline) func() []Event {
	t.Helper()
	ch := make(chan []Event, 1)
	go func() {
		var out []Event
		for e := range p.Events() {
			out = append(out, e)
		}
		ch <- out
	}()
	return func() []Event {
		select {
		case out := <-ch:
			return out
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for event channel to close")
			return nil
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

var errBoom = errors.New("boom")
