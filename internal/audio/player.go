package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

var logger = log.WithPrefix("audio")

var (
	// ErrEmptyAudio indicates a play request without samples.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrStopped is returned by Play for clips halted by Stop.
	ErrStopped = errors.New("playback stopped")
)

// Player plays PCM clips and blocks until each finishes. Concurrent clips
// are mixed; cancelling a Play's ctx stops only that clip.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
	Stop()
	Format() Format
}

// PlayerConfig configures the oto-backed player.
type PlayerConfig struct {
	Format     Format
	BufferSize time.Duration
	Volume     float64
}

// DefaultPlayerConfig returns 44.1 kHz mono at full volume.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Format:     DefaultFormat,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
	}
}

// otoContext is process-wide: oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoFmt  Format
)

// OtoPlayer plays through the system audio device.
type OtoPlayer struct {
	ctx    *oto.Context
	format Format
	volume float64

	mu      sync.Mutex
	playing map[*oto.Player]bool // value: stopped
}

// NewPlayer opens the audio device. Only the first call's format takes
// effect for the lifetime of the process.
func NewPlayer(cfg PlayerConfig) (*OtoPlayer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.Format.SampleRate,
			ChannelCount: cfg.Format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BufferSize,
		})
		if otoErr == nil {
			<-ready
			otoFmt = cfg.Format
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", otoErr)
	}

	return &OtoPlayer{
		ctx:     otoCtx,
		format:  otoFmt,
		volume:  cfg.Volume,
		playing: make(map[*oto.Player]bool),
	}, nil
}

func validateConfig(cfg PlayerConfig) error {
	if cfg.Format.SampleRate != 44100 && cfg.Format.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", cfg.Format.SampleRate)
	}
	if cfg.Format.Channels != 1 && cfg.Format.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", cfg.Format.Channels)
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %v", cfg.Volume)
	}
	return nil
}

// Format returns the PCM format the device was opened with.
func (p *OtoPlayer) Format() Format { return p.format }

// Play plays pcm to completion. A cancelled ctx stops this clip and returns
// ctx.Err(); other clips keep playing.
func (p *OtoPlayer) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(p.volume)

	p.mu.Lock()
	p.playing[player] = false
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.playing, player)
		p.mu.Unlock()
		_ = player.Close()
		// The reader must outlive playback.
		runtime.KeepAlive(pcm)
	}()

	player.Play()
	logger.Debug("playing clip", "bytes", len(pcm), "duration", p.format.Duration(len(pcm)))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if player.IsPlaying() {
				continue
			}
			p.mu.Lock()
			stopped := p.playing[player]
			p.mu.Unlock()
			if stopped {
				return ErrStopped
			}
			return player.Err()
		}
	}
}

// Stop halts every clip in progress; their Play calls return ErrStopped.
// It is meant for shutdown. Sessions stop their own clips through ctx.
func (p *OtoPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for player := range p.playing {
		p.playing[player] = true
		player.Pause()
	}
}
