// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: WAV file replay as a capture device
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// FilePrefix marks device handles that replay a WAV file instead of a device
const FilePrefix = "file:"

var errReaderClosed = errors.New("reader closed")

// FilePath extracts the path of a "file:" handle
func FilePath(handle string) (string, bool) {
	if !strings.HasPrefix(handle, FilePrefix) {
		return "", false
	}
	return strings.TrimPrefix(handle, FilePrefix), true
}

// loadWAV reads a WAV file and checks it against the capture sample rate
func loadWAV(path string, sampleRate int) ([]int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	rate, samples, err := ParseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WAV: %w", err)
	}
	if rate != sampleRate {
		return nil, fmt.Errorf("sample rate %d Hz does not match capture rate %d Hz", rate, sampleRate)
	}

	return samples, nil
}

// sampleReader replays samples frame by frame into a shared buffer.
// With a non-zero pace each Read takes one frame of audio time.
type sampleReader struct {
	samples []int16
	pos     int
	buf     []int16
	pace    time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func newSampleReader(samples, buf []int16, pace time.Duration) *sampleReader {
	return &sampleReader{
		samples: samples,
		buf:     buf,
		pace:    pace,
		closed:  make(chan struct{}),
	}
}

func (r *sampleReader) Read() error {
	select {
	case <-r.closed:
		return errReaderClosed
	default:
	}

	if r.pos >= len(r.samples) {
		return io.EOF
	}

	n := copy(r.buf, r.samples[r.pos:])
	clear(r.buf[n:])
	r.pos += n

	if r.pace > 0 {
		select {
		case <-r.closed:
			return errReaderClosed
		case <-time.After(r.pace):
		}
	}
	return nil
}

func (r *sampleReader) Abort() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *sampleReader) Close() error {
	return r.Abort()
}
