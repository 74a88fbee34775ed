package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/speech/engines"
)

var voicesCmd = &cobra.Command{
	Use:     "voices",
	Short:   "List the ElevenLabs voices available to your API key",
	Example: paragraph("VOICEPAL_ELEVENLABS_API_KEY=... voicepal voices"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		el := cfg.TTS.ElevenLabs
		if el.APIKey == "" {
			return fmt.Errorf("set VOICEPAL_ELEVENLABS_API_KEY to list voices")
		}

		engine := engines.NewElevenLabs(engines.ElevenLabsConfig{
			APIKey:  el.APIKey,
			BaseURL: el.BaseURL,
			Timeout: el.Timeout,
		})
		voices, err := engine.Voices(cmd.Context())
		if err != nil {
			return err
		}

		sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
		for _, voice := range voices {
			line := fmt.Sprintf("%s  %s", keyword(voice.ID), voice.Name)
			if voice.Category != "" {
				line += " (" + voice.Category + ")"
			}
			if voice.ID == el.VoiceID {
				line += " *"
			}
			fmt.Println(strings.TrimSpace(line))
		}
		return nil
	},
}
