package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

var logger = log.WithPrefix("speech")

// Kind identifies a speech backend.
type Kind int

const (
	// Browser speaks through the page agent's built-in speech synthesis.
	Browser Kind = iota
	// ElevenLabs speaks through the ElevenLabs cloud voice API.
	ElevenLabs
	// Custom speaks through a self-hosted synthesis server.
	Custom
)

// String returns the configuration name of the backend kind.
func (k Kind) String() string {
	switch k {
	case Browser:
		return "browser"
	case ElevenLabs:
		return "elevenlabs"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a backend name from configuration.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "browser":
		return Browser, nil
	case "elevenlabs", "eleven":
		return ElevenLabs, nil
	case "custom", "customapi":
		return Custom, nil
	default:
		return Browser, fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Request is one utterance to synthesize and play.
type Request struct {
	ID       string
	Text     string
	Rate     float64
	Language string
	Voice    string
}

// Backend synthesizes and plays speech. Speak blocks until playback has
// finished, failed, or ctx is cancelled.
type Backend interface {
	Kind() Kind
	// Available reports whether the backend has what it needs to speak,
	// such as credentials or a connected page.
	Available() error
	Speak(ctx context.Context, req Request) error
	// Cancel stops any playback in progress.
	Cancel()
}

// Notifier receives human-readable notices meant for the viewer.
type Notifier interface {
	Notice(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notice calls f.
func (f NotifierFunc) Notice(message string) { f(message) }

type discardNotifier struct{}

func (discardNotifier) Notice(string) {}
