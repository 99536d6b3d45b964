// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: Audio capture using PortAudio
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
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

const (
	// DefaultSampleRate is the recognizer input rate
	DefaultSampleRate = 16000

	// DefaultFrameSize is 128 ms at 16 kHz
	DefaultFrameSize = 2048

	// DefaultQueueFrames buffers ~8 s of audio while a translation runs
	DefaultQueueFrames = 64
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	SampleRate  int
	FrameSize   int
	QueueFrames int

	// ReplayRealtime paces "file:" replay at capture speed
	ReplayRealtime bool
}

// DefaultCaptureConfig returns default capture configuration
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:     DefaultSampleRate,
		FrameSize:      DefaultFrameSize,
		QueueFrames:    DefaultQueueFrames,
		ReplayRealtime: true,
	}
}

// Source opens mono 16-bit capture streams on PortAudio devices.
// Handles with the "file:" prefix replay a WAV file instead.
type Source struct {
	cfg    CaptureConfig
	logger *logging.Logger
}

// NewSource creates a new capture source
func NewSource(cfg CaptureConfig) *Source {
	def := DefaultCaptureConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.QueueFrames <= 0 {
		cfg.QueueFrames = def.QueueFrames
	}

	return &Source{
		cfg:    cfg,
		logger: logging.New("audio"),
	}
}

// Open implements interpreter.AudioSource
func (s *Source) Open(ctx context.Context, device interpreter.DeviceHandle) (interpreter.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path, ok := FilePath(string(device)); ok {
		return s.openFile(path)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, unavailable(err, "failed to initialize PortAudio", device)
	}

	buf := make([]int16, s.cfg.FrameSize)
	stream, err := s.openStream(device, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, unavailable(err, "failed to open audio stream", device)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, unavailable(err, "failed to start audio stream", device)
	}

	s.logger.Info("Capture started",
		"device", device.String(),
		"sample_rate", s.cfg.SampleRate,
		"frame_size", s.cfg.FrameSize,
		"queue_frames", s.cfg.QueueFrames,
	)

	release := func() {
		if err := portaudio.Terminate(); err != nil {
			s.logger.Debug("PortAudio terminate failed", "error", err)
		}
	}

	return newCaptureStream(stream, buf, s.cfg.QueueFrames, device.String(), s.logger, release, isInputOverflow), nil
}

// openStream opens the default input or the named device. A named device
// that cannot be found is an error; the caller decides about fallback.
func (s *Source) openStream(device interpreter.DeviceHandle, buf []int16) (*portaudio.Stream, error) {
	if device.IsDefault() {
		return portaudio.OpenDefaultStream(
			1, // input channels
			0, // output channels (none)
			float64(s.cfg.SampleRate),
			len(buf),
			buf,
		)
	}

	dev, err := findDevice(string(device), true)
	if err != nil {
		return nil, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.cfg.SampleRate),
		FramesPerBuffer: len(buf),
	}
	return portaudio.OpenStream(params, buf)
}

// openFile replays a WAV file through the same frame queue as a device
func (s *Source) openFile(path string) (interpreter.CaptureStream, error) {
	samples, err := loadWAV(path, s.cfg.SampleRate)
	if err != nil {
		return nil, unavailable(err, "failed to open replay file", interpreter.DeviceHandle(FilePrefix+path))
	}

	var pace = Duration(s.cfg.FrameSize, s.cfg.SampleRate)
	if !s.cfg.ReplayRealtime {
		pace = 0
	}

	buf := make([]int16, s.cfg.FrameSize)
	reader := newSampleReader(samples, buf, pace)

	s.logger.Info("Replaying file", "path", path, "duration", Duration(len(samples), s.cfg.SampleRate))

	return newCaptureStream(reader, buf, s.cfg.QueueFrames, FilePrefix+path, s.logger, nil, nil), nil
}

func isInputOverflow(err error) bool {
	return errors.Is(err, portaudio.InputOverflowed)
}

func unavailable(err error, msg string, device interpreter.DeviceHandle) error {
	return mdwerror.Wrap(err, msg).
		WithCode(mdwerror.CodeDeviceUnavailable).
		WithOperation("audio.Open").
		WithDetail("device", device.String())
}

// findDevice finds a PortAudio device by name and direction
func findDevice(name string, input bool) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	for _, dev := range devices {
		if dev.Name != name {
			continue
		}
		if input && dev.MaxInputChannels > 0 {
			return dev, nil
		}
		if !input && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("device not found: %s", name)
}
