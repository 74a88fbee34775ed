package session

import (
	"github.com/voicepal/voicepal/internal/playback"
	"github.com/voicepal/voicepal/internal/speech"
)

// Status is a point-in-time view of a session.
type Status struct {
	SessionID string
	State     playback.State
	Backend   speech.Kind
	Rate      float64
	// Queue excludes the utterance in flight.
	Queue   int
	Current string
	Last    string
	Stats   playback.Stats
}
