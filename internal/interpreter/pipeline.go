// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Capture, recognize, translate and speak loop
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package interpreter runs the live interpretation loop. One Pipeline
// instance serves exactly one start/stop cycle and owns its own
// cancellation; a Controller creates a fresh instance for every start.
package interpreter

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Deps are the capabilities the loop drives
type Deps struct {
	Audio      AudioSource
	Recognizer Recognizer
	Translator Translator
	Speech     SpeechOutput
}

// Pipeline is one interpretation run
type Pipeline struct {
	id     string
	cfg    Config
	deps   Deps
	sm     *StateMachine
	events *eventQueue
	logger *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	capture CaptureStream
	stream  RecognitionStream
	done    chan struct{}
	failure error

	heard int
}

// New creates an idle pipeline instance
func New(cfg Config, deps Deps) *Pipeline {
	def := DefaultConfig()
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	if cfg.Source == "" {
		cfg.Source = def.Source
	}
	if cfg.Target == "" {
		cfg.Target = def.Target
	}

	id := uuid.New().String()
	return &Pipeline{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		sm:     NewStateMachine(),
		events: newEventQueue(),
		logger: logging.New("pipeline").With("instance", id[:8]),
		done:   make(chan struct{}),
	}
}

// ID returns the instance id
func (p *Pipeline) ID() string {
	return p.id
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	return p.sm.Current()
}

// OnStateChange registers a state change listener
func (p *Pipeline) OnStateChange(listener StateChangeListener) {
	p.sm.AddListener(listener)
}

// Events returns the ordered status event channel. It is closed after
// the terminal event. Callers must drain it.
func (p *Pipeline) Events() <-chan Event {
	return p.events.out
}

// Done is closed once the loop has released its resources
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err returns the fatal error of a failed instance
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// Start begins interpretation in the background. It only succeeds from
// StateIdle.
func (p *Pipeline) Start(input, output DeviceHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch state := p.sm.Current(); {
	case state.IsActive():
		return ErrAlreadyRunning
	case state.IsTerminal():
		return ErrTerminated
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.events.start()
	p.sm.Transition(StateInitializing)
	p.publish(Event{Type: EventInitializing})
	p.logger.Info("Starting", "input", input.String(), "output", output.String(),
		"pair", p.cfg.Source+"→"+p.cfg.Target)

	go p.run(ctx, input, output)
	return nil
}

// Stop requests the loop to end and waits until resources are released.
// It is a no-op unless the instance is active. When the grace period
// expires the capture and recognition streams are force-closed and
// ErrStopTimeout returned.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	state := p.sm.Current()
	if !state.IsActive() {
		p.mu.Unlock()
		return nil
	}
	if state != StateStopping {
		p.sm.Transition(StateStopping)
		p.logger.Info("Stopping")
	}
	p.cancel()
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.StopGrace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	p.logger.Warn("Stop grace period expired, closing streams", "grace", p.cfg.StopGrace)
	p.mu.Lock()
	capture, stream := p.capture, p.stream
	p.mu.Unlock()
	if capture != nil {
		capture.Close()
	}
	if stream != nil {
		stream.Close()
	}
	return ErrStopTimeout
}

func (p *Pipeline) run(ctx context.Context, input, output DeviceHandle) {
	defer close(p.done)
	defer p.events.close()

	capture, stream, err := p.open(ctx, input)
	if err != nil {
		p.finish(ctx, err)
		return
	}

	if !p.sm.Transition(StateListening) {
		// Stop arrived while opening
		stream.Close()
		capture.Close()
		p.finish(ctx, nil)
		return
	}
	p.publish(Event{Type: EventListening})
	p.logger.Info("Listening")

	err = p.loop(ctx, capture, stream, output)

	if cerr := stream.Close(); cerr != nil {
		p.logger.Debug("Recognizer close failed", "error", cerr)
	}
	if cerr := capture.Close(); cerr != nil {
		p.logger.Debug("Capture close failed", "error", cerr)
	}

	p.finish(ctx, err)
}

// open acquires the capture stream and the recognizer in order. On
// failure nothing stays open.
func (p *Pipeline) open(ctx context.Context, input DeviceHandle) (CaptureStream, RecognitionStream, error) {
	if _, err := os.Stat(p.cfg.ModelPath); err != nil {
		return nil, nil, mdwerror.Wrap(err, "recognition model not found").
			WithCode(mdwerror.CodeModelMissing).
			WithOperation("pipeline.open").
			WithDetail("path", p.cfg.ModelPath)
	}

	capture, err := p.deps.Audio.Open(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	p.mu.Lock()
	p.capture = capture
	p.mu.Unlock()

	stream, err := p.deps.Recognizer.Open(ctx, p.cfg.ModelPath)
	if err != nil {
		capture.Close()
		return nil, nil, err
	}
	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()

	return capture, stream, nil
}

func (p *Pipeline) loop(ctx context.Context, capture CaptureStream, stream RecognitionStream, output DeviceHandle) error {
	frame := make([]int16, p.cfg.FrameSize)

	for {
		n, err := capture.ReadFrame(ctx, frame)
		if err != nil {
			return err
		}
		if n == 0 {
			if ctx.Err() == nil {
				p.logger.Info("Capture stream ended")
			}
			return nil
		}

		results, err := stream.Accept(ctx, frame[:n])
		if err != nil {
			return err
		}

		for _, result := range results {
			if result.Kind == Partial {
				p.logger.Debug("Partial", "text", result.Text)
				continue
			}

			text := strings.TrimSpace(result.Text)
			if text == "" {
				continue
			}
			p.interpret(ctx, text, output)

			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// interpret translates and speaks one utterance. Failures are reported
// as warnings and the utterance is dropped.
func (p *Pipeline) interpret(ctx context.Context, text string, output DeviceHandle) {
	p.logger.Info("Heard", "text", text)

	translated, err := p.deps.Translator.Translate(ctx, text, p.cfg.Source, p.cfg.Target)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.warn(err)
		return
	}

	if err := p.deps.Speech.Speak(ctx, translated, output, FlushAndSpeak); err != nil && ctx.Err() == nil {
		p.warn(err)
	}

	p.heard++
	p.publish(Event{Type: EventHeard, Source: text, Translation: translated})
	p.logger.Info("Translated", "text", translated, "utterances", p.heard)
}

// finish moves to the terminal state. A loop error while stopping is
// part of the stop, not a failure.
func (p *Pipeline) finish(ctx context.Context, err error) {
	if err != nil && ctx.Err() == nil && p.sm.Transition(StateFailed) {
		p.mu.Lock()
		p.failure = err
		p.mu.Unlock()

		p.logger.Error("Failed", "code", mdwerror.GetCode(err).String(), "error", err)
		p.publish(Event{Type: EventFailed, Reason: err.Error(), Code: mdwerror.GetCode(err).String()})
		return
	}

	if err != nil {
		p.logger.Debug("Loop error during stop", "error", err)
	}

	// The loop may end on its own, e.g. at the end of a replayed file
	p.sm.Transition(StateStopping)
	p.sm.Transition(StateStopped)
	p.publish(Event{Type: EventStopped})
	p.logger.Info("Stopped", "utterances", p.heard)
}

// Warn reports a non-fatal condition raised outside the loop, such as a
// playback failure on the speech worker. It returns false when the
// instance is not active and nothing was published.
func (p *Pipeline) Warn(err error) bool {
	if !p.State().IsActive() {
		return false
	}
	code := mdwerror.GetCode(err)
	p.logger.Warn("Warning", "code", code.String(), "error", err)
	p.publish(Event{Type: EventWarning, Reason: err.Error(), Code: code.String()})
	return true
}

func (p *Pipeline) warn(err error) {
	code := mdwerror.GetCode(err)
	p.logger.Warn("Utterance dropped", "code", code.String(), "error", err)
	p.publish(Event{Type: EventWarning, Reason: err.Error(), Code: code.String()})
}

func (p *Pipeline) publish(e Event) {
	e.Kind = e.Type.String()
	e.Instance = p.id
	e.State = p.sm.Current().String()
	e.Time = time.Now()
	p.events.push(e)
}

// IsStopTimeout reports whether err is ErrStopTimeout
func IsStopTimeout(err error) bool {
	return errors.Is(err, ErrStopTimeout)
}
