// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: Sample buffers for pre-roll and utterance collection
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package audio

import (
	"sync"
	"time"
)

// RingBuffer keeps the most recent samples, overwriting the oldest
type RingBuffer struct {
	mu       sync.Mutex
	data     []int16
	size     int
	writePos int
	readPos  int
	count    int
}

// NewRingBuffer creates a new ring buffer with the specified capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RingBuffer{
		data: make([]int16, capacity),
		size: capacity,
	}
}

// Write writes samples to the buffer
func (rb *RingBuffer) Write(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return
	}

	// Only the tail can survive
	if len(samples) > rb.size {
		samples = samples[len(samples)-rb.size:]
	}

	for _, s := range samples {
		rb.data[rb.writePos] = s
		rb.writePos = (rb.writePos + 1) % rb.size

		if rb.count < rb.size {
			rb.count++
		} else {
			// Overwrite oldest data
			rb.readPos = (rb.readPos + 1) % rb.size
		}
	}
}

// ReadAll removes and returns all samples ordered from oldest to newest
func (rb *RingBuffer) ReadAll() []int16 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	samples := make([]int16, rb.count)
	for i := 0; i < rb.count; i++ {
		samples[i] = rb.data[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
	}
	rb.count = 0

	return samples
}

// Len returns the number of samples in the buffer
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Cap returns the capacity of the buffer
func (rb *RingBuffer) Cap() int {
	return rb.size
}

// Clear clears the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}

// Utterance is a growing buffer collecting the samples of one utterance
type Utterance struct {
	samples    []int16
	sampleRate int
}

// NewUtterance creates an utterance buffer pre-allocated for ~10 seconds
func NewUtterance(sampleRate int) *Utterance {
	return &Utterance{
		samples:    make([]int16, 0, sampleRate*10),
		sampleRate: sampleRate,
	}
}

// Append adds samples to the buffer
func (u *Utterance) Append(samples []int16) {
	u.samples = append(u.samples, samples...)
}

// Samples returns a copy of the collected samples
func (u *Utterance) Samples() []int16 {
	out := make([]int16, len(u.samples))
	copy(out, u.samples)
	return out
}

// Len returns the number of samples
func (u *Utterance) Len() int {
	return len(u.samples)
}

// Duration returns the collected audio time
func (u *Utterance) Duration() time.Duration {
	return Duration(len(u.samples), u.sampleRate)
}

// Reset empties the buffer, keeping its capacity
func (u *Utterance) Reset() {
	u.samples = u.samples[:0]
}
