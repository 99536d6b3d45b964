// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     translate
// Description: Gemini translation backend (cloud)
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// GeminiConfig holds Gemini backend configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini translates with the Gemini API. The client is created on the
// first provisioning so construction never touches the network.
type Gemini struct {
	cfg    GeminiConfig
	logger *logging.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini creates a new Gemini backend
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &Gemini{
		cfg:    cfg,
		logger: logging.New("translate.gemini"),
	}
}

// Name implements Backend
func (g *Gemini) Name() string {
	return "gemini"
}

// Provision implements Backend. A hosted model needs no download;
// the pair is ready once a client can be built with an API key.
func (g *Gemini) Provision(ctx context.Context, source, target string, progress func(Progress)) error {
	key := strings.TrimSpace(g.cfg.APIKey)
	if key == "" || strings.HasPrefix(key, "${") {
		return mdwerror.New("gemini api key not configured").
			WithCode(mdwerror.CodeModelDownloadFailed).
			WithOperation("gemini.Provision")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			return mdwerror.Wrap(err, "gemini client setup failed").
				WithCode(mdwerror.CodeModelDownloadFailed).
				WithOperation("gemini.Provision")
		}
		g.client = client
	}

	if progress != nil {
		progress(Progress{Status: "ready"})
	}
	g.logger.Debug("Gemini ready", "model", g.cfg.Model, "pair", Pair(source, target))
	return nil
}

// Translate implements Backend
func (g *Gemini) Translate(ctx context.Context, text, source, target string) (string, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return "", mdwerror.New("gemini backend not provisioned").
			WithCode(mdwerror.CodeTranslationFailed).
			WithOperation("gemini.Translate")
	}

	model := client.GenerativeModel(g.cfg.Model)
	model.SetTemperature(0.1)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(SystemPrompt(source, target)),
		},
	}

	var builder strings.Builder
	stream := model.GenerateContentStream(ctx, genai.Text(text))
	for {
		resp, err := stream.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("error streaming: %w", err)
		}
		builder.WriteString(responseText(resp))
	}

	return builder.String(), nil
}

// Close implements Backend
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}
