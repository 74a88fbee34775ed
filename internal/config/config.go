// Package config holds VoicePal's settings: defaults, loading from viper and
// the environment, validation, partial updates from the page agent, and
// watching the config file for changes.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/voicepal/voicepal/internal/speech"
)

// Config contains every VoicePal setting.
type Config struct {
	Listen   string   `yaml:"listen" mapstructure:"listen"`
	LogLevel string   `yaml:"log_level" mapstructure:"log_level"`
	TTS      TTS      `yaml:"tts" mapstructure:"tts"`
	Pipeline Pipeline `yaml:"pipeline" mapstructure:"pipeline"`
	Cache    Cache    `yaml:"cache" mapstructure:"cache"`
	Audio    Audio    `yaml:"audio" mapstructure:"audio"`
}

// TTS selects and configures the speech backend. A session treats it as an
// immutable snapshot and replaces it wholesale on update.
type TTS struct {
	Backend         string     `yaml:"backend" mapstructure:"backend"`
	Voice           string     `yaml:"voice" mapstructure:"voice"`
	TargetLanguage  string     `yaml:"target_language" mapstructure:"target_language"`
	SourceLanguage  string     `yaml:"source_language" mapstructure:"source_language"`
	DefaultLanguage string     `yaml:"default_language" mapstructure:"default_language"`
	Translated      bool       `yaml:"translated" mapstructure:"translated"`
	ElevenLabs      ElevenLabs `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Custom          Custom     `yaml:"custom" mapstructure:"custom"`
}

// ElevenLabs configures the cloud voice backend.
type ElevenLabs struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	VoiceID           string        `yaml:"voice_id" mapstructure:"voice_id"`
	ModelID           string        `yaml:"model_id" mapstructure:"model_id"`
	Stability         float64       `yaml:"stability" mapstructure:"stability"`
	SimilarityBoost   float64       `yaml:"similarity_boost" mapstructure:"similarity_boost"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Custom configures the self-hosted synthesis server.
type Custom struct {
	URL      string            `yaml:"url" mapstructure:"url"`
	Headers  map[string]string `yaml:"headers" mapstructure:"headers"`
	RefAudio string            `yaml:"ref_audio" mapstructure:"ref_audio"`
	Timeout  time.Duration     `yaml:"timeout" mapstructure:"timeout"`
}

// Pipeline tunes caption processing and scheduling.
type Pipeline struct {
	MinLength           int           `yaml:"min_length" mapstructure:"min_length"`
	MaxLength           int           `yaml:"max_length" mapstructure:"max_length"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	ShortLength         int           `yaml:"short_length" mapstructure:"short_length"`
	LengthSlack         int           `yaml:"length_slack" mapstructure:"length_slack"`
	CadenceHistory      int           `yaml:"cadence_history" mapstructure:"cadence_history"`
	SpokenHistory       int           `yaml:"spoken_history" mapstructure:"spoken_history"`
	MaxBacklog          int           `yaml:"max_backlog" mapstructure:"max_backlog"`
	InterruptAfter      time.Duration `yaml:"interrupt_after" mapstructure:"interrupt_after"`
	ErrorDelay          time.Duration `yaml:"error_delay" mapstructure:"error_delay"`
	QuietPeriod         time.Duration `yaml:"quiet_period" mapstructure:"quiet_period"`
	MinInterval         time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	DuckFloor           float64       `yaml:"duck_floor" mapstructure:"duck_floor"`
	DuckRatio           float64       `yaml:"duck_ratio" mapstructure:"duck_ratio"`
}

// Cache sizes the synthesized audio cache. An empty Dir uses the user's data
// directory.
type Cache struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	MemoryMB int64  `yaml:"memory_mb" mapstructure:"memory_mb"`
	DiskMB   int64  `yaml:"disk_mb" mapstructure:"disk_mb"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
}

// Audio configures local playback for provider audio.
type Audio struct {
	SampleRate int     `yaml:"sample_rate" mapstructure:"sample_rate"`
	Volume     float64 `yaml:"volume" mapstructure:"volume"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:   "127.0.0.1:17320",
		LogLevel: "info",
		TTS: TTS{
			Backend:         "browser",
			SourceLanguage:  "auto",
			DefaultLanguage: speech.DefaultLanguage,
			ElevenLabs: ElevenLabs{
				ModelID:           "eleven_multilingual_v2",
				Stability:         0.5,
				SimilarityBoost:   0.75,
				BaseURL:           "https://api.elevenlabs.io",
				RequestsPerMinute: 60,
				Timeout:           15 * time.Second,
			},
			Custom: Custom{
				Headers: map[string]string{},
				Timeout: 30 * time.Second,
			},
		},
		Pipeline: Pipeline{
			MinLength:           2,
			MaxLength:           300,
			SimilarityThreshold: 0.95,
			ShortLength:         5,
			LengthSlack:         5,
			CadenceHistory:      10,
			SpokenHistory:       5,
			MaxBacklog:          2,
			InterruptAfter:      2 * time.Second,
			ErrorDelay:          100 * time.Millisecond,
			QuietPeriod:         300 * time.Millisecond,
			MinInterval:         500 * time.Millisecond,
			DuckFloor:           0.3,
			DuckRatio:           0.3,
		},
		Cache: Cache{
			Enabled:  true,
			MemoryMB: 32,
			DiskMB:   256,
		},
		Audio: Audio{
			SampleRate: 44100,
			Volume:     1.0,
		},
	}
}

// Kind returns the configured backend kind.
func (t TTS) Kind() (speech.Kind, error) {
	return speech.ParseKind(t.Backend)
}

// Clone returns a deep copy.
func (t TTS) Clone() TTS {
	c := t
	c.Custom.Headers = make(map[string]string, len(t.Custom.Headers))
	for k, v := range t.Custom.Headers {
		c.Custom.Headers[k] = v
	}
	return c
}

// Validate checks the TTS settings and normalizes the backend name.
func (t *TTS) Validate() error {
	kind, err := t.Kind()
	if err != nil {
		return err
	}
	t.Backend = kind.String()

	if t.ElevenLabs.Stability < 0 || t.ElevenLabs.Stability > 1 {
		return fmt.Errorf("elevenlabs stability must be between 0 and 1, got %v", t.ElevenLabs.Stability)
	}
	if t.ElevenLabs.SimilarityBoost < 0 || t.ElevenLabs.SimilarityBoost > 1 {
		return fmt.Errorf("elevenlabs similarity_boost must be between 0 and 1, got %v", t.ElevenLabs.SimilarityBoost)
	}
	if t.ElevenLabs.RequestsPerMinute < 0 {
		return fmt.Errorf("elevenlabs requests_per_minute must not be negative, got %d", t.ElevenLabs.RequestsPerMinute)
	}
	if t.Custom.URL != "" {
		u, err := url.Parse(t.Custom.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("custom url must be an http(s) URL, got %q", t.Custom.URL)
		}
		t.Custom.URL = strings.TrimRight(t.Custom.URL, "/")
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.TTS.Validate(); err != nil {
		return err
	}

	p := c.Pipeline
	if p.MinLength < 1 || p.MaxLength < p.MinLength {
		return fmt.Errorf("caption length bounds must satisfy 1 <= min <= max, got %d..%d", p.MinLength, p.MaxLength)
	}
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", p.SimilarityThreshold)
	}
	if p.CadenceHistory < 2 || p.SpokenHistory < 1 {
		return fmt.Errorf("history sizes too small: cadence %d, spoken %d", p.CadenceHistory, p.SpokenHistory)
	}
	if p.MaxBacklog < 1 {
		return fmt.Errorf("max_backlog must be at least 1, got %d", p.MaxBacklog)
	}
	if p.DuckFloor < 0 || p.DuckFloor > 1 || p.DuckRatio < 0 || p.DuckRatio > 1 {
		return fmt.Errorf("duck_floor and duck_ratio must be between 0 and 1")
	}

	if c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000 {
		return fmt.Errorf("audio sample_rate must be 44100 or 48000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume must be between 0 and 1, got %v", c.Audio.Volume)
	}
	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return fmt.Errorf("cache sizes must not be negative")
	}
	return nil
}
