// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     translate
// Description: Translation service with lazy per-pair model provisioning
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/msto63/dolmetscher/pkg/core/cache"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Progress reports model provisioning progress
type Progress struct {
	Pair      string
	Status    string
	Completed int64
	Total     int64
}

// Percent returns the completed share in percent, or -1 if unknown
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// Backend is a translation engine
type Backend interface {
	// Name identifies the backend in logs
	Name() string

	// Provision makes the model for a pair available, downloading it if needed
	Provision(ctx context.Context, source, target string, progress func(Progress)) error

	// Translate translates one text
	Translate(ctx context.Context, text, source, target string) (string, error)

	// Close releases resources
	Close() error
}

// Config holds translation service configuration
type Config struct {
	// Timeout bounds a single translation call (not provisioning)
	Timeout time.Duration

	// CacheTTL and CacheSize configure the memo of recent translations
	CacheTTL  time.Duration
	CacheSize int
}

// DefaultConfig returns default service configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   60 * time.Second,
		CacheTTL:  30 * time.Minute,
		CacheSize: 512,
	}
}

// Service implements interpreter.Translator on top of a Backend.
// Provisioning runs at most once per pair; concurrent callers share one
// attempt and a failed attempt is retried by the next call.
type Service struct {
	backend Backend
	cfg     Config
	logger  *logging.Logger

	group       singleflight.Group
	mu          sync.RWMutex
	provisioned map[string]bool

	memo       *cache.Cache[string]
	onProgress func(Progress)
}

// NewService creates a new translation service
func NewService(backend Backend, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Service{
		backend:     backend,
		cfg:         cfg,
		logger:      logging.New("translate"),
		provisioned: make(map[string]bool),
		memo: cache.New[string](cache.Config{
			MaxItems: cfg.CacheSize,
			TTL:      cfg.CacheTTL,
		}),
	}
}

// OnProgress registers a callback for provisioning progress
func (s *Service) OnProgress(fn func(Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// Backend returns the underlying backend
func (s *Service) Backend() Backend {
	return s.backend
}

// Provisioned reports whether the model for a pair is ready
func (s *Service) Provisioned(source, target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provisioned[Pair(source, target)]
}

// Prepare provisions the model for a pair ahead of the first translation
func (s *Service) Prepare(ctx context.Context, source, target string) error {
	return s.ensure(ctx, source, target)
}

// Translate implements interpreter.Translator
func (s *Service) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if strings.EqualFold(source, target) {
		return text, nil
	}

	key := cache.Key(s.backend.Name(), Pair(source, target), text)
	if cached, ok := s.memo.Get(key); ok {
		s.logger.Debug("Translation served from cache", "pair", Pair(source, target))
		return cached, nil
	}

	if err := s.ensure(ctx, source, target); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := s.backend.Translate(callCtx, text, source, target)
	if err != nil {
		if mdwerror.GetCode(err) != mdwerror.CodeUnknown {
			return "", err
		}
		return "", mdwerror.Wrap(err, "translation failed").
			WithCode(mdwerror.CodeTranslationFailed).
			WithOperation("translate.Translate").
			WithDetail("pair", Pair(source, target)).
			WithDetail("backend", s.backend.Name())
	}

	out = cleanTranslation(out)
	if out == "" {
		return "", mdwerror.New("translation returned empty text").
			WithCode(mdwerror.CodeTranslationFailed).
			WithOperation("translate.Translate").
			WithDetail("pair", Pair(source, target))
	}

	s.memo.Set(key, out)
	s.logger.Debug("Translated",
		"pair", Pair(source, target),
		"backend", s.backend.Name(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return out, nil
}

// ensure provisions a pair once; failures are not remembered
func (s *Service) ensure(ctx context.Context, source, target string) error {
	pair := Pair(source, target)

	s.mu.RLock()
	ready := s.provisioned[pair]
	s.mu.RUnlock()
	if ready {
		return nil
	}

	_, err, shared := s.group.Do(pair, func() (interface{}, error) {
		// A previous flight may have finished between the check and Do
		s.mu.RLock()
		done := s.provisioned[pair]
		s.mu.RUnlock()
		if done {
			return nil, nil
		}

		s.logger.Info("Provisioning translation model", "pair", pair, "backend", s.backend.Name())
		start := time.Now()

		err := s.backend.Provision(ctx, source, target, func(p Progress) {
			p.Pair = pair
			s.mu.RLock()
			onProgress := s.onProgress
			s.mu.RUnlock()
			if onProgress != nil {
				onProgress(p)
			}
		})
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.provisioned[pair] = true
		s.mu.Unlock()

		s.logger.Info("Translation model ready", "pair", pair, "duration", time.Since(start).Round(time.Millisecond))
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("Provisioning failed", "pair", pair, "shared", shared, "error", err)
		if mdwerror.HasCode(err, mdwerror.CodeModelDownloadFailed) {
			return err
		}
		return mdwerror.Wrap(err, "translation model unavailable").
			WithCode(mdwerror.CodeModelDownloadFailed).
			WithOperation("translate.Provision").
			WithDetail("pair", pair)
	}

	return nil
}

// Close releases the backend and the memo cache
func (s *Service) Close() error {
	s.memo.Close()
	return s.backend.Close()
}
