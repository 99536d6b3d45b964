// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     stt
// Description: Streaming decoder: VAD endpointing over utterance transcription
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/audio"
	"github.com/msto63/dolmetscher/internal/interpreter/vad"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Stream implements interpreter.RecognitionStream. Frames are classified by
// the detector; when the tracker closes an utterance its audio (including
// pre-roll) is transcribed and returned as one Final result.
type Stream struct {
	cfg         Config
	transcriber Transcriber
	detector    vad.Detector
	tracker     *vad.Tracker
	preRoll     *audio.RingBuffer
	utterance   *audio.Utterance
	logger      *logging.Logger

	lastPartial time.Duration
	closeOnce   sync.Once
	closeErr    error
}

func newStream(cfg Config, t Transcriber, d vad.Detector, logger *logging.Logger) *Stream {
	return &Stream{
		cfg:         cfg,
		transcriber: t,
		detector:    d,
		tracker:     vad.NewTracker(cfg.VAD),
		preRoll:     audio.NewRingBuffer(audio.SamplesFor(cfg.PreRoll, cfg.SampleRate)),
		utterance:   audio.NewUtterance(cfg.SampleRate),
		logger:      logger,
	}
}

// Accept implements interpreter.RecognitionStream
func (s *Stream) Accept(ctx context.Context, frame []int16) ([]interpreter.Result, error) {
	speech, err := s.detector.IsSpeech(frame)
	if err != nil {
		return nil, mdwerror.Wrap(err, "voice activity detection failed").
			WithCode(mdwerror.CodeRecognitionFailure).
			WithOperation("stt.Accept")
	}

	d := audio.Duration(len(frame), s.cfg.SampleRate)

	switch decision := s.tracker.Update(speech, d); decision {
	case vad.Idle:
		s.preRoll.Write(frame)
		return nil, nil

	case vad.Started:
		s.utterance.Reset()
		s.utterance.Append(s.preRoll.ReadAll())
		s.utterance.Append(frame)
		s.lastPartial = 0
		s.logger.Debug("Speech started")
		return nil, nil

	case vad.Continue:
		s.utterance.Append(frame)
		return s.maybePartial(ctx), nil

	case vad.Discarded:
		s.logger.Debug("Utterance too short, discarded", "duration", s.utterance.Duration())
		s.utterance.Reset()
		s.preRoll.Write(frame)
		return nil, nil

	case vad.Ended, vad.Truncated:
		s.utterance.Append(frame)
		if decision == vad.Truncated {
			s.logger.Debug("Utterance reached maximum length, committing", "duration", s.utterance.Duration())
		}
		return s.commit(ctx)
	}

	return nil, nil
}

// commit transcribes the collected utterance into a Final result
func (s *Stream) commit(ctx context.Context) ([]interpreter.Result, error) {
	samples := s.utterance.Samples()
	duration := s.utterance.Duration()
	s.utterance.Reset()

	text, err := s.transcribe(ctx, samples)
	if err != nil {
		return nil, mdwerror.Wrap(err, "transcription failed").
			WithCode(mdwerror.CodeRecognitionFailure).
			WithOperation("stt.Accept").
			WithDetail("duration", duration.String())
	}

	if text == "" {
		s.logger.Debug("Empty transcript dropped", "duration", duration)
		return nil, nil
	}

	s.logger.Debug("Utterance committed", "duration", duration, "chars", len(text))
	return []interpreter.Result{{Kind: interpreter.Final, Text: text}}, nil
}

// maybePartial transcribes the open utterance every PartialInterval of audio.
// Partial failures are logged only.
func (s *Stream) maybePartial(ctx context.Context) []interpreter.Result {
	if s.cfg.PartialInterval <= 0 {
		return nil
	}

	elapsed := s.utterance.Duration()
	if elapsed-s.lastPartial < s.cfg.PartialInterval {
		return nil
	}
	s.lastPartial = elapsed

	text, err := s.transcribe(ctx, s.utterance.Samples())
	if err != nil {
		s.logger.Debug("Partial transcription failed", "error", err)
		return nil
	}
	if text == "" {
		return nil
	}
	return []interpreter.Result{{Kind: interpreter.Partial, Text: text}}
}

func (s *Stream) transcribe(ctx context.Context, samples []int16) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	text, err := s.transcriber.Transcribe(ctx, samples)
	if err != nil {
		return "", err
	}
	return cleanTranscript(text), nil
}

// Close implements interpreter.RecognitionStream
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.detector.Close(); err != nil {
			s.logger.Debug("Detector close failed", "error", err)
		}
		s.closeErr = s.transcriber.Close()
	})
	return s.closeErr
}
