package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/voicepal/voicepal/internal/config"
)

const configHeader = `# VoicePal configuration.
#
# Credentials are best kept in the environment:
#   VOICEPAL_ELEVENLABS_API_KEY, VOICEPAL_ELEVENLABS_VOICE_ID,
#   VOICEPAL_CUSTOM_URL, VOICEPAL_CUSTOM_TOKEN
# Changes to tts settings apply to running sessions on save.

`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the voicepal config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voicepal config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voicepal config\nvoicepal config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("VoicePal", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		if _, err := config.LoadFile(configFile); err != nil {
			fmt.Println("Warning:", err)
		}
		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

// defaultConfig renders the built-in defaults as a config file.
func defaultConfig() ([]byte, error) {
	body, err := config.YAML(config.Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(configHeader), body...), nil
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = v.ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		body, err := defaultConfig()
		if err != nil {
			return fmt.Errorf("unable to render default config: %w", err)
		}
		if err := os.WriteFile(configFile, body, 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
