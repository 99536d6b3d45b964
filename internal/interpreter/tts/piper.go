// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tts
// Description: Piper neural TTS rendered through PortAudio
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/audio"
)

// Piper synthesizes raw 16-bit PCM with the piper binary
type Piper struct {
	binaryPath string
	modelPath  string
	configPath string
	espeakData string
	sampleRate int
	player     Player
}

// NewPiper creates a new Piper engine
func NewPiper(cfg Config, player Player) (*Piper, error) {
	if cfg.PiperBinary == "" {
		path, err := exec.LookPath("piper")
		if err != nil {
			return nil, fmt.Errorf("piper binary not found in PATH")
		}
		cfg.PiperBinary = path
	}
	if _, err := os.Stat(cfg.PiperBinary); err != nil {
		return nil, fmt.Errorf("piper binary not found: %s", cfg.PiperBinary)
	}

	if cfg.PiperModel == "" {
		return nil, fmt.Errorf("piper model path is required")
	}
	if _, err := os.Stat(cfg.PiperModel); err != nil {
		return nil, fmt.Errorf("piper model not found: %s", cfg.PiperModel)
	}

	// Voice config sits next to the model
	configPath := cfg.PiperModel + ".json"
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	espeakData := cfg.EspeakData
	if espeakData == "" {
		candidate := filepath.Join(filepath.Dir(cfg.PiperBinary), "espeak-ng-data")
		if _, err := os.Stat(candidate); err == nil {
			espeakData = candidate
		}
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 22050
	}

	return &Piper{
		binaryPath: cfg.PiperBinary,
		modelPath:  cfg.PiperModel,
		configPath: configPath,
		espeakData: espeakData,
		sampleRate: rate,
		player:     player,
	}, nil
}

// Name implements Engine
func (p *Piper) Name() string {
	return EnginePiper
}

// SampleRate returns the output sample rate
func (p *Piper) SampleRate() int {
	return p.sampleRate
}

// Synthesize converts text to mono 16-bit PCM
func (p *Piper) Synthesize(ctx context.Context, text string) ([]int16, error) {
	args := []string{"--model", p.modelPath}
	if p.configPath != "" {
		args = append(args, "--config", p.configPath)
	}
	args = append(args, "--output_raw")
	if p.espeakData != "" {
		args = append(args, "--espeak_data", p.espeakData)
	}

	cmd := exec.CommandContext(ctx, p.binaryPath, args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Bundled piper builds load their libraries from the binary directory
	cmd.Dir = filepath.Dir(p.binaryPath)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DYLD_LIBRARY_PATH=%s", filepath.Dir(p.binaryPath)),
		fmt.Sprintf("LD_LIBRARY_PATH=%s", filepath.Dir(p.binaryPath)),
	)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() < 2 {
		return nil, fmt.Errorf("piper produced no audio")
	}

	return audio.BytesToInt16(stdout.Bytes()), nil
}

// Prepare implements Engine
func (p *Piper) Prepare(ctx context.Context, text string) (Rendering, error) {
	pcm, err := p.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &pcmRendering{pcm: pcm, rate: p.sampleRate, player: p.player}, nil
}

// Close implements Engine
func (p *Piper) Close() error {
	return nil
}

type pcmRendering struct {
	pcm    []int16
	rate   int
	player Player
}

func (r *pcmRendering) Play(ctx context.Context, route interpreter.DeviceHandle) error {
	if r.player == nil {
		return fmt.Errorf("no audio player configured")
	}
	return r.player.Play(ctx, r.pcm, r.rate, route)
}
