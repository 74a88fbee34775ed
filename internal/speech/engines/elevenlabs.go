package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/voicepal/voicepal/internal/audio"
	"github.com/voicepal/voicepal/internal/cache"
	"github.com/voicepal/voicepal/internal/speech"
	"golang.org/x/time/rate"
)

// ElevenLabs accepts speeds in this range only.
const (
	MinElevenLabsSpeed = 0.7
	MaxElevenLabsSpeed = 1.2
)

// ElevenLabsConfig configures the ElevenLabs backend.
type ElevenLabsConfig struct {
	APIKey          string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	// BaseURL defaults to https://api.elevenlabs.io.
	BaseURL string
	// RequestsPerMinute paces synthesis requests; 0 means unlimited.
	RequestsPerMinute int
	Timeout           time.Duration

	Player audio.Player
	// Cache is optional.
	Cache  AudioCache
	Client *http.Client
}

// ElevenLabsEngine synthesizes with the ElevenLabs text-to-speech API and
// plays the returned PCM locally.
type ElevenLabsEngine struct {
	cfg     ElevenLabsConfig
	client  *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	lastRate float64
	cancel   context.CancelFunc
}

// NewElevenLabs creates the backend. Missing credentials are reported by
// Available, not here, so the speaker can fall back.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabsEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &ElevenLabsEngine{
		cfg:      cfg,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		lastRate: 1,
	}
}

// Kind implements speech.Backend.
func (e *ElevenLabsEngine) Kind() speech.Kind { return speech.ElevenLabs }

// Available implements speech.Backend.
func (e *ElevenLabsEngine) Available() error {
	switch {
	case e.cfg.APIKey == "":
		return speech.NewError(speech.CodeUnavailable, speech.ElevenLabs, "missing API key", speech.ErrMissingCredentials)
	case e.cfg.VoiceID == "":
		return speech.NewError(speech.CodeUnavailable, speech.ElevenLabs, "missing voice ID", speech.ErrMissingCredentials)
	case e.cfg.Player == nil:
		return speech.NewError(speech.CodeUnavailable, speech.ElevenLabs, "no audio output", nil)
	}
	return nil
}

// ClampSpeed limits r to the speeds the API accepts.
func ClampSpeed(r float64) float64 {
	if r < MinElevenLabsSpeed {
		return MinElevenLabsSpeed
	}
	if r > MaxElevenLabsSpeed {
		return MaxElevenLabsSpeed
	}
	return r
}

// LastRate returns the speed sent with the most recent request.
func (e *ElevenLabsEngine) LastRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRate
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns 44.1 kHz mono PCM for req, from the cache when
// possible.
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	if req.Text == "" {
		return nil, speech.ErrEmptyText
	}

	speed := ClampSpeed(req.Rate)
	e.mu.Lock()
	e.lastRate = speed
	e.mu.Unlock()

	voice := e.cfg.VoiceID
	key := cache.Key(speech.ElevenLabs.String(), voice, req.Language, speed, req.Text)
	if e.cfg.Cache != nil {
		if pcm, level, ok := e.cfg.Cache.Get(key); ok {
			logger.Debug("cache hit", "level", level, "bytes", len(pcm))
			return pcm, nil
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, speech.NewError(speech.CodeRequest, speech.ElevenLabs, "rate limit wait failed", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_44100", e.cfg.BaseURL, url.PathEscape(voice))
	pcm, err := call(ctx, e.client, speech.ElevenLabs, http.MethodPost, endpoint,
		map[string]string{"xi-api-key": e.cfg.APIKey, "Accept": "audio/pcm"},
		synthesisRequest{
			Text:    req.Text,
			ModelID: e.cfg.ModelID,
			VoiceSettings: voiceSettings{
				Stability:       e.cfg.Stability,
				SimilarityBoost: e.cfg.SimilarityBoost,
				Speed:           speed,
			},
		})
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, speech.NewError(speech.CodeAudio, speech.ElevenLabs, "empty audio response", nil)
	}
	// Odd trailing bytes cannot form a sample.
	pcm = pcm[:len(pcm)&^1]

	if e.cfg.Cache != nil {
		if err := e.cfg.Cache.Put(key, pcm); err != nil {
			logger.Debug("audio not cached", "err", err)
		}
	}
	return pcm, nil
}

// Speak implements speech.Backend.
func (e *ElevenLabsEngine) Speak(ctx context.Context, req speech.Request) error {
	if err := e.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	pcm, err := e.Synthesize(ctx, req)
	if err != nil {
		return err
	}

	out := e.cfg.Player.Format()
	if out != audio.DefaultFormat {
		pcm, err = audio.Convert(audio.Clip{Format: audio.DefaultFormat, PCM: pcm}, out, 1)
		if err != nil {
			return speech.NewError(speech.CodeAudio, speech.ElevenLabs, "failed to convert audio", err)
		}
	}

	if err := e.cfg.Player.Play(ctx, pcm); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return speech.NewError(speech.CodeAudio, speech.ElevenLabs, "playback failed", err)
	}
	return nil
}

// Cancel implements speech.Backend. It stops only this engine's clip; the
// player may be shared with other sessions.
func (e *ElevenLabsEngine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Voice is one voice available to the account.
type Voice struct {
	ID       string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// Voices lists the voices available to the API key.
func (e *ElevenLabsEngine) Voices(ctx context.Context) ([]Voice, error) {
	if e.cfg.APIKey == "" {
		return nil, speech.NewError(speech.CodeUnavailable, speech.ElevenLabs, "missing API key", speech.ErrMissingCredentials)
	}

	data, err := call(ctx, e.client, speech.ElevenLabs, http.MethodGet, e.cfg.BaseURL+"/v1/voices",
		map[string]string{"xi-api-key": e.cfg.APIKey, "Accept": "application/json"}, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Voices []Voice `json:"voices"`
	}
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return nil, speech.NewError(speech.CodeRequest, speech.ElevenLabs, "invalid voices response", err)
	}
	return resp.Voices, nil
}
