// Package mock provides a scriptable speech backend for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voicepal/voicepal/internal/speech"
)

// Backend is an in-memory speech.Backend. Speak sleeps for the configured
// delay, honoring cancellation, and records every request.
type Backend struct {
	kind speech.Kind

	mu          sync.Mutex
	delay       time.Duration
	failure     error
	unavailable error
	requests    []speech.Request
	cancels     int
	started     chan speech.Request
}

// New creates a mock backend reporting the given kind.
func New(kind speech.Kind) *Backend {
	return &Backend{kind: kind}
}

// Kind implements speech.Backend.
func (b *Backend) Kind() speech.Kind { return b.kind }

// Available implements speech.Backend.
func (b *Backend) Available() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unavailable
}

// Speak implements speech.Backend.
func (b *Backend) Speak(ctx context.Context, req speech.Request) error {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	delay, failure, started := b.delay, b.failure, b.started
	b.mu.Unlock()

	if started != nil {
		select {
		case started <- req:
		default:
		}
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

// Cancel implements speech.Backend.
func (b *Backend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels++
}

// Test control methods

// SetDelay sets how long Speak takes.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// SetFailure makes Speak return err after the delay. nil clears it.
func (b *Backend) SetFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = err
}

// SetUnavailable makes Available return err. nil clears it.
func (b *Backend) SetUnavailable(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unavailable = err
}

// NotifyStarted sends each request to ch when Speak begins, dropping it if
// ch is not ready.
func (b *Backend) NotifyStarted(ch chan speech.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = ch
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []speech.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]speech.Request(nil), b.requests...)
}

// Texts returns the text of each request received so far.
func (b *Backend) Texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.requests))
	for i, r := range b.requests {
		out[i] = r.Text
	}
	return out
}

// CallCount returns the number of Speak calls.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// CancelCount returns the number of Cancel calls.
func (b *Backend) CancelCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancels
}
