package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.TTS.Backend = "piper" }, "unknown speech backend"},
		{"bad custom url", func(c *Config) { c.TTS.Custom.URL = "ftp://host" }, "custom url"},
		{"stability", func(c *Config) { c.TTS.ElevenLabs.Stability = 2 }, "stability"},
		{"length bounds", func(c *Config) { c.Pipeline.MaxLength = 1 }, "length bounds"},
		{"threshold", func(c *Config) { c.Pipeline.SimilarityThreshold = 0 }, "similarity_threshold"},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 22050 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := Default()
	cfg.TTS.Backend = "CustomAPI"
	cfg.TTS.Custom.URL = "https://tts.example.com/"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.TTS.Backend != "custom" || cfg.TTS.Custom.URL != "https://tts.example.com" {
		t.Errorf("normalized to %q, %q", cfg.TTS.Backend, cfg.TTS.Custom.URL)
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "voicepal.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
tts:
  backend: elevenlabs
  elevenlabs:
    voice_id: abc123
pipeline:
  interrupt_after: 3s
`)
	t.Setenv("VOICEPAL_ELEVENLABS_API_KEY", "secret")
	t.Setenv("VOICEPAL_PIPELINE_MAX_BACKLOG", "4")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.TTS.Backend != "elevenlabs" || cfg.TTS.ElevenLabs.VoiceID != "abc123" {
		t.Errorf("file values not applied: %+v", cfg.TTS)
	}
	if cfg.TTS.ElevenLabs.APIKey != "secret" {
		t.Errorf("APIKey = %q, want value from environment", cfg.TTS.ElevenLabs.APIKey)
	}
	if cfg.Pipeline.InterruptAfter != 3*time.Second {
		t.Errorf("InterruptAfter = %v", cfg.Pipeline.InterruptAfter)
	}
	if cfg.Pipeline.MaxBacklog != 4 {
		t.Errorf("MaxBacklog = %d, want env override 4", cfg.Pipeline.MaxBacklog)
	}
	if cfg.TTS.ElevenLabs.ModelID != "eleven_multilingual_v2" {
		t.Errorf("default ModelID lost: %q", cfg.TTS.ElevenLabs.ModelID)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	raw, err := YAML(Default())
	if err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, t.TempDir(), string(raw))
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(default yaml): %v", err)
	}
	if cfg.Pipeline.QuietPeriod != 300*time.Millisecond || cfg.Listen != Default().Listen {
		t.Errorf("defaults changed through yaml: %+v", cfg.Pipeline)
	}
}

func TestMerge(t *testing.T) {
	base := Default().TTS
	base.Custom.Headers["X-Team"] = "a"

	got, err := base.Merge(map[string]any{
		"ttsService":     "customapi",
		"customApiUrl":   "http://localhost:9880",
		"custom.headers": map[string]any{"Authorization": "Bearer t"},
		"custom":         map[string]any{"timeout": "5s"},
		"targetLanguage": "ja-JP",
		"translated":     "true",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got.Backend != "custom" || got.Custom.URL != "http://localhost:9880" {
		t.Errorf("backend/url = %q, %q", got.Backend, got.Custom.URL)
	}
	if got.Custom.Timeout != 5*time.Second || got.TargetLanguage != "ja-JP" || !got.Translated {
		t.Errorf("merged = %+v", got)
	}
	if got.Custom.Headers["X-Team"] != "a" || got.Custom.Headers["Authorization"] != "Bearer t" {
		t.Errorf("headers = %v", got.Custom.Headers)
	}
	if _, ok := base.Custom.Headers["Authorization"]; ok || base.Backend != "browser" {
		t.Error("Merge mutated the original configuration")
	}
}

func TestMergeRejectsInvalid(t *testing.T) {
	base := Default().TTS
	got, err := base.Merge(map[string]any{"backend": "espeak"})
	if err == nil {
		t.Fatal("Merge accepted unknown backend")
	}
	if got.Backend != base.Backend {
		t.Errorf("failed merge returned %q", got.Backend)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "tts:\n  backend: browser\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	if err := Watch(ctx, path, func(c Config) { changes <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeConfig(t, dir, "tts:\n  backend: custom\n  custom:\n    url: http://127.0.0.1:9880\n")

	select {
	case cfg := <-changes:
		if cfg.TTS.Backend != "custom" {
			t.Errorf("reloaded backend = %q", cfg.TTS.Backend)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}
