// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     stt
// Description: Recognizer opening VAD-endpointed recognition streams
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package stt

import (
	"context"
	"os"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/vad"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// TranscriberFactory builds the transcriber for a model path
type TranscriberFactory func(cfg Config, modelPath string) (Transcriber, error)

// DetectorFactory builds the voice activity detector for a stream
type DetectorFactory func(cfg vad.Config) (vad.Detector, error)

// Recognizer implements interpreter.Recognizer
type Recognizer struct {
	cfg            Config
	logger         *logging.Logger
	newTranscriber TranscriberFactory
	newDetector    DetectorFactory
}

// Option configures a Recognizer
type Option func(*Recognizer)

// WithTranscriberFactory replaces the engine selected by cfg.Engine
func WithTranscriberFactory(f TranscriberFactory) Option {
	return func(r *Recognizer) { r.newTranscriber = f }
}

// WithDetectorFactory replaces the WebRTC detector
func WithDetectorFactory(f DetectorFactory) Option {
	return func(r *Recognizer) { r.newDetector = f }
}

// NewRecognizer creates a new recognizer
func NewRecognizer(cfg Config, opts ...Option) *Recognizer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	cfg.VAD.SampleRate = cfg.SampleRate

	r := &Recognizer{
		cfg:            cfg,
		logger:         logging.New("stt"),
		newTranscriber: NewTranscriber,
		newDetector: func(c vad.Config) (vad.Detector, error) {
			return vad.NewWebRTC(c)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open implements interpreter.Recognizer
func (r *Recognizer) Open(ctx context.Context, modelPath string) (interpreter.RecognitionStream, error) {
	if err := CheckModel(modelPath); err != nil {
		return nil, err
	}

	transcriber, err := r.newTranscriber(r.cfg, modelPath)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create transcriber").
			WithCode(mdwerror.CodeRecognitionFailure).
			WithOperation("stt.Open").
			WithDetail("engine", r.cfg.Engine)
	}

	detector, err := r.newDetector(r.cfg.VAD)
	if err != nil {
		transcriber.Close()
		return nil, mdwerror.Wrap(err, "failed to create voice activity detector").
			WithCode(mdwerror.CodeRecognitionFailure).
			WithOperation("stt.Open")
	}

	r.logger.Info("Recognition stream opened",
		"engine", r.cfg.Engine,
		"model", modelPath,
		"language", r.cfg.Language,
		"silence", r.cfg.VAD.Silence,
	)

	return newStream(r.cfg, transcriber, detector, r.logger), nil
}

// CheckModel fails with CodeModelMissing when modelPath does not exist
func CheckModel(modelPath string) error {
	if modelPath == "" {
		return mdwerror.New("no recognition model configured").
			WithCode(mdwerror.CodeModelMissing).
			WithOperation("stt.Open")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return mdwerror.Wrap(err, "recognition model not found").
			WithCode(mdwerror.CodeModelMissing).
			WithOperation("stt.Open").
			WithDetail("path", modelPath)
	}
	return nil
}
