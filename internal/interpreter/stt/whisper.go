// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     stt
// Description: Whisper STT using the whisper.cpp CLI or an HTTP server
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter/audio"
)

// WhisperCLI implements speech-to-text using whisper.cpp CLI
type WhisperCLI struct {
	binaryPath string
	modelPath  string
	language   string
	sampleRate int
	threads    int
	tempDir    string
}

// NewWhisperCLI creates a new Whisper CLI transcriber
func NewWhisperCLI(cfg Config, modelPath string) (*WhisperCLI, error) {
	binaryPath := cfg.WhisperBinary
	if binaryPath == "" {
		binaryPath = FindWhisperBinary()
	}
	if binaryPath == "" {
		return nil, fmt.Errorf("whisper binary not found")
	}

	tempDir, err := os.MkdirTemp("", "dolmetscher-whisper-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &WhisperCLI{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
		threads:    cfg.Threads,
		tempDir:    tempDir,
	}, nil
}

// FindWhisperBinary finds the whisper.cpp binary on PATH or in common locations
func FindWhisperBinary() string {
	for _, name := range []string{"whisper-cli", "whisper-cpp", "whisper"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	locations := []string{
		"/opt/homebrew/bin/whisper-cli",
		"/usr/local/bin/whisper-cli",
		"/usr/local/bin/whisper",
		"/usr/bin/whisper",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Transcribe implements Transcriber
func (w *WhisperCLI) Transcribe(ctx context.Context, samples []int16) (string, error) {
	wavPath := filepath.Join(w.tempDir, fmt.Sprintf("utt_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(wavPath, audio.EncodeWAV(samples, w.sampleRate), 0600); err != nil {
		return "", fmt.Errorf("failed to write WAV file: %w", err)
	}
	defer os.Remove(wavPath)

	args := []string{
		"--model", w.modelPath,
		"--language", w.language,
		"--no-prints",
		"--no-timestamps",
		"--file", wavPath,
	}
	if w.threads > 0 {
		args = append(args, "--threads", strconv.Itoa(w.threads))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.binaryPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		// Older builds only know the short flags
		short := []string{"-m", w.modelPath, "-l", w.language, "-np", "-nt", "-f", wavPath}
		stdout.Reset()
		stderr.Reset()
		cmd2 := exec.CommandContext(ctx, w.binaryPath, short...)
		cmd2.Stdout = &stdout
		cmd2.Stderr = &stderr

		if err2 := cmd2.Run(); err2 != nil {
			return "", fmt.Errorf("whisper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
		}
	}

	return cleanTranscript(stdout.String()), nil
}

// Close removes the temp directory
func (w *WhisperCLI) Close() error {
	if w.tempDir != "" {
		return os.RemoveAll(w.tempDir)
	}
	return nil
}

// WhisperHTTP implements speech-to-text against an OpenAI-compatible
// /v1/audio/transcriptions endpoint (whisper.cpp server, LocalAI)
type WhisperHTTP struct {
	baseURL    string
	model      string
	language   string
	sampleRate int
	client     *http.Client
}

// NewWhisperHTTP creates a new Whisper HTTP client. The model name sent to
// the server is the base name of modelPath.
func NewWhisperHTTP(cfg Config, modelPath string) *WhisperHTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &WhisperHTTP{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		model:      strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe implements Transcriber
func (w *WhisperHTTP) Transcribe(ctx context.Context, samples []int16) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(samples, w.sampleRate)); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	fields := map[string]string{
		"model":           w.model,
		"language":        w.language,
		"response_format": "json",
		"temperature":     "0",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	url := fmt.Sprintf("%s/v1/audio/transcriptions", w.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var response struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return cleanTranscript(response.Text), nil
}

// Close releases resources
func (w *WhisperHTTP) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
