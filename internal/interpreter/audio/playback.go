// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: Audio playback using PortAudio
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// playbackFrames is the output buffer size in samples
const playbackFrames = 1024

// Player plays mono 16-bit PCM on a routed output device
type Player struct {
	logger *logging.Logger
}

// NewPlayer creates a new audio player
func NewPlayer() *Player {
	return &Player{
		logger: logging.New("playback"),
	}
}

// Play blocks until all samples are played or ctx is cancelled.
// An unavailable route falls back to the default output device.
func (p *Player) Play(ctx context.Context, pcm []int16, sampleRate int, route interpreter.DeviceHandle) error {
	if len(pcm) == 0 {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	buffer := make([]int16, playbackFrames)
	stream, err := p.openOutput(route, sampleRate, buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	for pos := 0; pos < len(pcm); pos += len(buffer) {
		if err := ctx.Err(); err != nil {
			// Cut immediately instead of draining the device buffer
			stream.Abort()
			return err
		}

		n := copy(buffer, pcm[pos:])
		clear(buffer[n:])

		if err := stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				continue
			}
			stream.Abort()
			return fmt.Errorf("failed to write to stream: %w", err)
		}
	}

	return stream.Stop()
}

// openOutput opens the routed device, or the default one when the route
// cannot be used
func (p *Player) openOutput(route interpreter.DeviceHandle, sampleRate int, buffer []int16) (*portaudio.Stream, error) {
	if !route.IsDefault() {
		dev, err := findDevice(string(route), false)
		if err == nil {
			params := portaudio.StreamParameters{
				Output: portaudio.StreamDeviceParameters{
					Device:   dev,
					Channels: 1,
					Latency:  dev.DefaultLowOutputLatency,
				},
				SampleRate:      float64(sampleRate),
				FramesPerBuffer: len(buffer),
			}
			stream, err := portaudio.OpenStream(params, buffer)
			if err == nil {
				return stream, nil
			}
			p.logger.Debug("Output route failed, using default", "route", route.String(), "error", err)
		} else {
			p.logger.Debug("Output route unavailable, using default", "route", route.String(), "error", err)
		}
	}

	return portaudio.OpenDefaultStream(
		0, // input channels (none)
		1, // output channels
		float64(sampleRate),
		len(buffer),
		buffer,
	)
}
