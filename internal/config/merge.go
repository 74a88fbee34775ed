package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Setting names used by older versions of the browser extension.
var legacyKeys = map[string]string{
	"ttsService":        "backend",
	"elevenLabsApiKey":  "elevenlabs.api_key",
	"elevenLabsVoiceId": "elevenlabs.voice_id",
	"customApiUrl":      "custom.url",
	"customApiHeaders":  "custom.headers",
	"refAudio":          "custom.ref_audio",
	"targetLanguage":    "target_language",
	"sourceLanguage":    "source_language",
	"voiceName":         "voice",
}

// Merge returns a copy of t with the partial settings applied. Keys may be
// nested maps, dotted paths, or legacy extension names. t is unchanged when
// the result does not validate.
func (t TTS) Merge(partial map[string]any) (TTS, error) {
	out := t.Clone()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return t, err
	}
	if err := dec.Decode(expandKeys(partial)); err != nil {
		return t, fmt.Errorf("invalid settings update: %w", err)
	}
	if err := out.Validate(); err != nil {
		return t, fmt.Errorf("invalid settings update: %w", err)
	}
	return out, nil
}

func expandKeys(partial map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range partial {
		if mapped, ok := legacyKeys[k]; ok {
			k = mapped
		}
		parts := strings.Split(k, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		last := parts[len(parts)-1]
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := node[last].(map[string]any); ok {
				for sk, sv := range expandKeys(sub) {
					existing[sk] = sv
				}
				continue
			}
			v = expandKeys(sub)
		}
		node[last] = v
	}
	return out
}
