// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tts
// Description: Speech output queue with flush-and-speak semantics
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"strings"
	"sync"

	"github.com/msto63/dolmetscher/internal/interpreter"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

type speechItem struct {
	text      string
	route     interpreter.DeviceHandle
	rendering Rendering
}

// Speaker implements interpreter.SpeechOutput. Synthesis runs in Speak;
// playback runs on a single worker goroutine in queue order.
type Speaker struct {
	engine    Engine
	queueSize int
	logger    *logging.Logger

	mu            sync.Mutex
	queue         []*speechItem
	cancelCurrent context.CancelFunc
	speaking      bool
	closed        bool
	onError       func(error)

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpeaker creates a speaker and starts its worker
func NewSpeaker(engine Engine, queueSize int) *Speaker {
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}

	s := &Speaker{
		engine:    engine,
		queueSize: queueSize,
		logger:    logging.New("speaker").With("engine", engine.Name()),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// OnPlaybackError registers a callback for asynchronous playback failures
func (s *Speaker) OnPlaybackError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Speak implements interpreter.SpeechOutput
func (s *Speaker) Speak(ctx context.Context, text string, route interpreter.DeviceHandle, mode interpreter.SpeakMode) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	rendering, err := s.engine.Prepare(ctx, text)
	if err != nil {
		return mdwerror.Wrap(err, "speech synthesis failed").
			WithCode(mdwerror.CodeSpeechOutputFailure).
			WithOperation("speaker.Speak").
			WithDetail("engine", s.engine.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return mdwerror.New("speaker closed").
			WithCode(mdwerror.CodeSpeechOutputFailure).
			WithOperation("speaker.Speak")
	}

	if mode == interpreter.FlushAndSpeak {
		s.flushLocked()
	}

	if len(s.queue) >= s.queueSize {
		s.logger.Warn("Speech queue full, dropping oldest", "size", len(s.queue))
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, &speechItem{text: text, route: route, rendering: rendering})

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return nil
}

// Flush cancels the active speech and drops everything queued
func (s *Speaker) Flush() {
	s.mu.Lock()
	s.flushLocked()
	s.mu.Unlock()
}

func (s *Speaker) flushLocked() {
	if n := len(s.queue); n > 0 {
		s.logger.Debug("Dropping queued speech", "count", n)
	}
	clear(s.queue)
	s.queue = s.queue[:0]
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
}

// Pending returns the number of queued items not yet playing
func (s *Speaker) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Speaking reports whether an item is playing
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Close stops playback, drops the queue and waits for the worker
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.flushLocked()
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return s.engine.Close()
}

func (s *Speaker) run() {
	defer s.wg.Done()

	for {
		item, ctx, cancel := s.next()
		if item == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		err := item.rendering.Play(ctx, item.route)
		interrupted := ctx.Err() != nil
		cancel()

		s.mu.Lock()
		s.speaking = false
		s.cancelCurrent = nil
		onError := s.onError
		s.mu.Unlock()

		switch {
		case interrupted:
			s.logger.Debug("Speech interrupted", "text", item.text)
		case err != nil:
			s.logger.Warn("Playback failed", "route", item.route.String(), "error", err)
			if onError != nil {
				onError(mdwerror.Wrap(err, "playback failed").
					WithCode(mdwerror.CodeSpeechOutputFailure).
					WithOperation("speaker.play"))
			}
		}
	}
}

// next pops the head of the queue and marks it playing
func (s *Speaker) next() (*speechItem, context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.queue) == 0 {
		return nil, nil, nil
	}

	item := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCurrent = cancel
	s.speaking = true

	return item, ctx, cancel
}
