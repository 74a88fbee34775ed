package audio

import (
	"context"
	"sync"
	"time"
)

// MockPlayer simulates playback without an audio device. Each clip takes its
// real duration scaled by DelayFactor.
type MockPlayer struct {
	format Format

	mu          sync.Mutex
	delayFactor float64
	clips       [][]byte
	stops       int
	failure     error
	stopCh      chan struct{}
}

// NewMockPlayer creates a mock player. A delayFactor of 0 makes Play return
// immediately.
func NewMockPlayer(format Format, delayFactor float64) *MockPlayer {
	return &MockPlayer{format: format, delayFactor: delayFactor, stopCh: make(chan struct{})}
}

// Format implements Player.
func (m *MockPlayer) Format() Format { return m.format }

// Play implements Player.
func (m *MockPlayer) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	m.mu.Lock()
	m.clips = append(m.clips, append([]byte(nil), pcm...))
	failure, stopCh := m.failure, m.stopCh
	wait := time.Duration(float64(m.format.Duration(len(pcm))) * m.delayFactor)
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return ErrStopped
	case <-timer.C:
		return nil
	}
}

// Stop implements Player.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	close(m.stopCh)
	m.stopCh = make(chan struct{})
}

// SetFailure makes Play fail with err. nil clears it.
func (m *MockPlayer) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Clips returns copies of every clip played.
func (m *MockPlayer) Clips() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.clips...)
}

// StopCount returns the number of Stop calls.
func (m *MockPlayer) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
