package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Secrets are read from the environment only, so credentials never need to
// live in the config file.
type Secrets struct {
	ElevenLabsAPIKey  string `env:"VOICEPAL_ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string `env:"VOICEPAL_ELEVENLABS_VOICE_ID"`
	CustomURL         string `env:"VOICEPAL_CUSTOM_URL"`
	CustomToken       string `env:"VOICEPAL_CUSTOM_TOKEN"`
}

// Apply copies the non-empty secrets into cfg.
func (s Secrets) Apply(cfg *Config) {
	if s.ElevenLabsAPIKey != "" {
		cfg.TTS.ElevenLabs.APIKey = s.ElevenLabsAPIKey
	}
	if s.ElevenLabsVoiceID != "" {
		cfg.TTS.ElevenLabs.VoiceID = s.ElevenLabsVoiceID
	}
	if s.CustomURL != "" {
		cfg.TTS.Custom.URL = s.CustomURL
	}
	if s.CustomToken != "" {
		if cfg.TTS.Custom.Headers == nil {
			cfg.TTS.Custom.Headers = map[string]string{}
		}
		cfg.TTS.Custom.Headers["Authorization"] = "Bearer " + s.CustomToken
	}
}

// SetDefaults registers every default under its dotted key so that
// environment overrides and IsSet work for all settings.
func SetDefaults(v *viper.Viper) error {
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// Load decodes the configuration held by v, applies environment secrets and
// validates the result.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}
	secrets.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewViper returns a viper instance with defaults and VOICEPAL_* environment
// overrides.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	if err := SetDefaults(v); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("voicepal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// LoadFile reads one config file on top of the defaults.
func LoadFile(path string) (Config, error) {
	v, err := NewViper()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Load(v)
}

// YAML renders cfg as a config file.
func YAML(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
