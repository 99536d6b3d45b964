// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     tts
// Description: macOS native TTS using 'say' command
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// Say speaks with the macOS say command. It plays on the system output;
// the route is ignored.
type Say struct {
	binary string
	voice  string
	rate   int
}

// NewSay creates a new say engine
func NewSay(cfg Config) (*Say, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("say command not available")
	}

	rate := cfg.Rate
	if rate <= 0 {
		rate = 200
	}

	return &Say{
		binary: path,
		voice:  cfg.Voice,
		rate:   rate,
	}, nil
}

// Name implements Engine
func (s *Say) Name() string {
	return EngineSay
}

// Prepare implements Engine
func (s *Say) Prepare(ctx context.Context, text string) (Rendering, error) {
	args := []string{}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	if s.rate > 0 {
		args = append(args, "-r", strconv.Itoa(s.rate))
	}
	args = append(args, text)

	return &commandRendering{binary: s.binary, args: args}, nil
}

// Close implements Engine
func (s *Say) Close() error {
	return nil
}

type commandRendering struct {
	binary string
	args   []string
}

func (r *commandRendering) Play(ctx context.Context, _ interpreter.DeviceHandle) error {
	return exec.CommandContext(ctx, r.binary, r.args...).Run()
}
