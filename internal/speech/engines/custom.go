package engines

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/voicepal/voicepal/internal/audio"
	"github.com/voicepal/voicepal/internal/cache"
	"github.com/voicepal/voicepal/internal/speech"
)

// CustomConfig configures a self-hosted synthesis server.
type CustomConfig struct {
	// URL is the server root; requests go to URL + "/tts".
	URL      string
	Headers  map[string]string
	RefAudio string
	Timeout  time.Duration

	Player audio.Player
	Cache  AudioCache
	Client *http.Client
}

// CustomEngine posts text to a self-hosted server that answers with a WAV
// file. The playback rate is applied by resampling.
type CustomEngine struct {
	cfg    CustomConfig
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCustom creates the backend.
func NewCustom(cfg CustomConfig) *CustomEngine {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	cfg.Headers = headers

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &CustomEngine{cfg: cfg, client: client}
}

// Kind implements speech.Backend.
func (e *CustomEngine) Kind() speech.Kind { return speech.Custom }

// Available implements speech.Backend.
func (e *CustomEngine) Available() error {
	if e.cfg.URL == "" {
		return speech.NewError(speech.CodeUnavailable, speech.Custom, "missing server URL", speech.ErrMissingCredentials)
	}
	if e.cfg.Player == nil {
		return speech.NewError(speech.CodeUnavailable, speech.Custom, "no audio output", nil)
	}
	return nil
}

type customRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	Emphasize int    `json:"emphasize"`
	Denoise   int    `json:"denoise"`
	RefAudio  string `json:"ref_audio,omitempty"`
}

// Synthesize returns PCM in format, already resampled for req.Rate.
func (e *CustomEngine) Synthesize(ctx context.Context, req speech.Request, format audio.Format) ([]byte, error) {
	if req.Text == "" {
		return nil, speech.ErrEmptyText
	}

	key := cache.Key(speech.Custom.String(), e.cfg.URL+"|"+e.cfg.RefAudio, req.Language, req.Rate, req.Text)
	if e.cfg.Cache != nil {
		if pcm, level, ok := e.cfg.Cache.Get(key); ok {
			logger.Debug("cache hit", "level", level, "bytes", len(pcm))
			return pcm, nil
		}
	}

	wav, err := call(ctx, e.client, speech.Custom, http.MethodPost, e.cfg.URL+"/tts", e.cfg.Headers,
		customRequest{
			Text:     req.Text,
			Language: req.Language,
			RefAudio: e.cfg.RefAudio,
		})
	if err != nil {
		return nil, err
	}

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, speech.NewError(speech.CodeAudio, speech.Custom, "invalid audio response", err)
	}
	pcm, err := audio.Convert(clip, format, req.Rate)
	if err != nil {
		return nil, speech.NewError(speech.CodeAudio, speech.Custom, "failed to convert audio", err)
	}
	if len(pcm) == 0 {
		return nil, speech.NewError(speech.CodeAudio, speech.Custom, "empty audio response", nil)
	}

	if e.cfg.Cache != nil {
		if err := e.cfg.Cache.Put(key, pcm); err != nil {
			logger.Debug("audio not cached", "err", err)
		}
	}
	return pcm, nil
}

// Speak implements speech.Backend.
func (e *CustomEngine) Speak(ctx context.Context, req speech.Request) error {
	if err := e.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	pcm, err := e.Synthesize(ctx, req, e.cfg.Player.Format())
	if err != nil {
		return err
	}
	if err := e.cfg.Player.Play(ctx, pcm); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return speech.NewError(speech.CodeAudio, speech.Custom, "playback failed", err)
	}
	return nil
}

// Cancel implements speech.Backend. It stops only this engine's clip; the
// player may be shared with other sessions.
func (e *CustomEngine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
