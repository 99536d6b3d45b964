// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     translate
// Description: Ollama translation backend (local LLM)
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// OllamaConfig holds Ollama backend configuration
type OllamaConfig struct {
	BaseURL string
	Model   string

	// PullTimeout bounds a model download; zero means no bound
	PullTimeout time.Duration
}

// DefaultOllamaConfig returns default Ollama configuration
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:     "http://localhost:11434",
		Model:       "qwen2.5:3b",
		PullTimeout: 30 * time.Minute,
	}
}

// Ollama translates with a local Ollama server. One multilingual model
// serves every pair, so provisioning a pair means making that model present.
type Ollama struct {
	cfg        OllamaConfig
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOllama creates a new Ollama backend
func NewOllama(cfg OllamaConfig) *Ollama {
	def := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Ollama{
		cfg: cfg,
		// Per-call deadlines come from the context
		httpClient: &http.Client{},
		logger:     logging.New("translate.ollama"),
	}
}

// ChatMessage represents a chat message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat request
type ChatRequest struct {
	Model     string                 `json:"model"`
	Messages  []ChatMessage          `json:"messages"`
	Stream    bool                   `json:"stream"`
	Options   map[string]interface{} `json:"options,omitempty"`
	KeepAlive string                 `json:"keep_alive,omitempty"`
}

// ChatResponse represents a chat response
type ChatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// ModelInfo represents model information
type ModelInfo struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// ListModelsResponse represents a list models response
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// PullRequest represents a model pull request
type PullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// PullProgress represents one line of pull progress
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Name implements Backend
func (o *Ollama) Name() string {
	return "ollama"
}

// Model returns the configured model name
func (o *Ollama) Model() string {
	return o.cfg.Model
}

// Provision implements Backend
func (o *Ollama) Provision(ctx context.Context, source, target string, progress func(Progress)) error {
	present, err := o.HasModel(ctx, o.cfg.Model)
	if err != nil {
		return mdwerror.Wrap(err, "ollama not reachable").
			WithCode(mdwerror.CodeModelDownloadFailed).
			WithOperation("ollama.Provision").
			WithDetail("url", o.cfg.BaseURL)
	}
	if present {
		o.logger.Debug("Model already present", "model", o.cfg.Model)
		return nil
	}

	o.logger.Info("Pulling model", "model", o.cfg.Model, "pair", Pair(source, target))

	pullCtx := ctx
	if o.cfg.PullTimeout > 0 {
		var cancel context.CancelFunc
		pullCtx, cancel = context.WithTimeout(ctx, o.cfg.PullTimeout)
		defer cancel()
	}

	err = o.Pull(pullCtx, o.cfg.Model, func(p PullProgress) {
		if progress != nil {
			progress(Progress{Status: p.Status, Completed: p.Completed, Total: p.Total})
		}
	})
	if err != nil {
		return mdwerror.Wrap(err, "model download failed").
			WithCode(mdwerror.CodeModelDownloadFailed).
			WithOperation("ollama.Provision").
			WithDetail("model", o.cfg.Model)
	}

	return nil
}

// Translate implements Backend
func (o *Ollama) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := o.Chat(ctx, &ChatRequest{
		Model: o.cfg.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt(source, target)},
			{Role: "user", Content: text},
		},
		Options: map[string]interface{}{
			"temperature": 0.1,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// Close implements Backend
func (o *Ollama) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// HasModel reports whether a model is installed. A name without tag
// also matches its ":latest" variant.
func (o *Ollama) HasModel(ctx context.Context, name string) (bool, error) {
	list, err := o.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range list.Models {
		if m.Name == name || m.Name == name+":latest" {
			return true, nil
		}
	}
	return false, nil
}

// ListModels lists installed models
func (o *Ollama) ListModels(ctx context.Context) (*ListModelsResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", o.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Pull downloads a model, reporting each progress line
func (o *Ollama) Pull(ctx context.Context, name string, progress func(PullProgress)) error {
	body, err := json.Marshal(&PullRequest{Name: name, Stream: true})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.cfg.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	decoder := json.NewDecoder(resp.Body)
	for {
		var p PullProgress
		if err := decoder.Decode(&p); err != nil {
			if err == io.EOF {
				return fmt.Errorf("pull stream ended before success")
			}
			return fmt.Errorf("failed to decode progress: %w", err)
		}

		if p.Error != "" {
			return fmt.Errorf("pull failed: %s", p.Error)
		}
		if progress != nil {
			progress(p)
		}
		if p.Status == "success" {
			return nil
		}
	}
}

// Chat performs a non-streaming chat completion
func (o *Ollama) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("chat failed: %s", result.Error)
	}

	return &result, nil
}
