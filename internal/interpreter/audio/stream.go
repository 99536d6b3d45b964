// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: Frame queue between a blocking reader and the pipeline loop
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// closeWait bounds how long Close waits for a blocked reader
const closeWait = 500 * time.Millisecond

// blockingReader fills a shared sample buffer on each Read.
// *portaudio.Stream satisfies it.
type blockingReader interface {
	Read() error
	Abort() error
	Close() error
}

// captureStream moves frames from a blockingReader into a bounded queue.
// The queue lets the pipeline translate while capture continues; when it is
// full new frames are dropped.
type captureStream struct {
	src     blockingReader
	buf     []int16
	device  string
	logger  *logging.Logger
	release func()

	// transient reports read errors that are skipped (e.g. input overflow)
	transient func(error) bool

	frames     chan []int16
	errs       chan error
	eof        chan struct{}
	done       chan struct{}
	readerDone chan struct{}

	closeOnce sync.Once
	closeErr  error
	dropped   atomic.Int64
}

func newCaptureStream(src blockingReader, buf []int16, queueFrames int, device string, logger *logging.Logger, release func(), transient func(error) bool) *captureStream {
	if queueFrames <= 0 {
		queueFrames = 1
	}
	if transient == nil {
		transient = func(error) bool { return false }
	}

	s := &captureStream{
		src:        src,
		buf:        buf,
		device:     device,
		logger:     logger,
		release:    release,
		transient:  transient,
		frames:     make(chan []int16, queueFrames),
		errs:       make(chan error, 1),
		eof:        make(chan struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go s.readLoop()

	return s
}

// readLoop continuously reads audio from the source
func (s *captureStream) readLoop() {
	defer close(s.readerDone)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.src.Read(); err != nil {
			// Check if we're still supposed to be running
			select {
			case <-s.done:
				return
			default:
			}

			switch {
			case errors.Is(err, io.EOF):
				close(s.eof)
				return
			case s.transient(err):
				s.logger.Debug("Transient capture error", "device", s.device, "error", err)
				continue
			default:
				s.errs <- err
				return
			}
		}

		// Copy buffer and queue it
		frame := make([]int16, len(s.buf))
		copy(frame, s.buf)

		select {
		case s.frames <- frame:
		default:
			n := s.dropped.Add(1)
			if n == 1 || n%50 == 0 {
				s.logger.Warn("Capture queue full, dropping frame", "device", s.device, "dropped", n)
			}
		}
	}
}

// ReadFrame implements interpreter.CaptureStream
func (s *captureStream) ReadFrame(ctx context.Context, buf []int16) (int, error) {
	select {
	case <-ctx.Done():
		return 0, nil
	case <-s.done:
		return 0, nil
	case frame := <-s.frames:
		return copy(buf, frame), nil
	case err := <-s.errs:
		return 0, mdwerror.Wrap(err, "audio read failed").
			WithCode(mdwerror.CodeCaptureFailure).
			WithDetail("device", s.device)
	case <-s.eof:
		// Drain what the reader queued before the end
		select {
		case frame := <-s.frames:
			return copy(buf, frame), nil
		default:
			return 0, nil
		}
	}
}

// Dropped returns the number of frames dropped because the queue was full
func (s *captureStream) Dropped() int64 {
	return s.dropped.Load()
}

// Close implements interpreter.CaptureStream
func (s *captureStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		if err := s.src.Abort(); err != nil {
			s.logger.Debug("Abort failed", "device", s.device, "error", err)
		}

		select {
		case <-s.readerDone:
		case <-time.After(closeWait):
			s.logger.Warn("Capture reader did not exit in time", "device", s.device)
		}

		if err := s.src.Close(); err != nil {
			s.closeErr = mdwerror.Wrap(err, "failed to close audio stream").WithCode(mdwerror.CodeCaptureFailure)
		}

		if s.release != nil {
			s.release()
		}

		if n := s.dropped.Load(); n > 0 {
			s.logger.Info("Capture closed", "device", s.device, "dropped_frames", n)
		}
	})
	return s.closeErr
}
