package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/voicepal/voicepal/internal/audio"
	"github.com/voicepal/voicepal/internal/cache"
	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/internal/speech"
	"github.com/voicepal/voicepal/internal/speech/engines"
)

// runtime holds the process-wide resources shared by every session: the
// audio device and the synthesized audio cache.
type runtime struct {
	player audio.Player
	cache  *cache.Manager
}

func newRuntime(cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	pc := audio.DefaultPlayerConfig()
	pc.Format.SampleRate = cfg.Audio.SampleRate
	pc.Volume = cfg.Audio.Volume
	if p, err := audio.NewPlayer(pc); err != nil {
		log.Warn("Audio output unavailable, provider voices disabled", "err", err)
	} else {
		rt.player = p
	}

	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			d, err := gap.NewScope(gap.User, "voicepal").CacheDir()
			if err != nil {
				return nil, fmt.Errorf("unable to get cache dir: %w", err)
			}
			dir = d
		}
		m, err := cache.NewManager(cache.Config{
			MemoryBytes: cfg.Cache.MemoryMB << 20,
			DiskBytes:   cfg.Cache.DiskMB << 20,
			Dir:         dir,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to open audio cache: %w", err)
		}
		rt.cache = m
	}
	return rt, nil
}

// backends builds the provider backends for one TTS configuration.
func (rt *runtime) backends(tts config.TTS) []speech.Backend {
	var c engines.AudioCache
	if rt.cache != nil {
		c = rt.cache
	}

	voiceID := tts.ElevenLabs.VoiceID
	if voiceID == "" {
		voiceID = tts.Voice
	}
	el := tts.ElevenLabs
	return []speech.Backend{
		engines.NewElevenLabs(engines.ElevenLabsConfig{
			APIKey:            el.APIKey,
			VoiceID:           voiceID,
			ModelID:           el.ModelID,
			Stability:         el.Stability,
			SimilarityBoost:   el.SimilarityBoost,
			BaseURL:           el.BaseURL,
			RequestsPerMinute: el.RequestsPerMinute,
			Timeout:           el.Timeout,
			Player:            rt.player,
			Cache:             c,
		}),
		engines.NewCustom(engines.CustomConfig{
			URL:      tts.Custom.URL,
			Headers:  tts.Custom.Headers,
			RefAudio: tts.Custom.RefAudio,
			Timeout:  tts.Custom.Timeout,
			Player:   rt.player,
			Cache:    c,
		}),
	}
}

func (rt *runtime) cacheSummary() string {
	if rt.cache == nil {
		return "off"
	}
	return rt.cache.Summary()
}

func (rt *runtime) Close() error {
	if rt.player != nil {
		rt.player.Stop()
	}
	if rt.cache != nil {
		return rt.cache.Close()
	}
	return nil
}

// logObserver reports session events through the logger when no TUI runs.
type logObserver struct{}

func (logObserver) Status(st session.Status) {
	log.Debug("Session status", "session", st.SessionID, "state", st.State,
		"backend", st.Backend, "rate", st.Rate, "queue", st.Queue)
}

func (logObserver) Notice(message string) {
	log.Warn(message)
}
