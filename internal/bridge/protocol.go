// Package bridge connects page agents (browser extension content scripts)
// over WebSocket and runs one speech session per connected page.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/voicepal/voicepal/internal/ducking"
)

// Message types sent by the page agent.
const (
	TypeCaption      = "caption"
	TypeStart        = "start"
	TypeStop         = "stop"
	TypeUpdateConfig = "update_config"
	TypeSpeechDone   = "speech_done"
	TypeVolumes      = "volumes"
)

// Message types sent to the page agent.
const (
	TypeSpeak        = "speak"
	TypeCancelSpeech = "cancel_speech"
	TypeGetVolumes   = "get_volumes"
	TypeSetVolume    = "set_volume"
	TypeNotice       = "notice"
	TypeStatus       = "status"
)

// Envelope is the JSON frame for every message:
//
//	{"type": "<message type>", "payload": { ... }}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode builds a frame. payload may be nil.
func Encode(typ string, payload any) ([]byte, error) {
	env := Envelope{Type: typ}
	if payload != nil {
		raw, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", typ, err)
		}
		env.Payload = raw
	}
	return sonic.Marshal(env)
}

// Decode parses a frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("invalid message: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("invalid message: missing type")
	}
	return env, nil
}

// Bind decodes the payload into v.
func (e Envelope) Bind(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", e.Type, err)
	}
	return nil
}

// CaptionPayload carries the current caption text on screen.
type CaptionPayload struct {
	Text string `json:"text"`
}

// StartPayload starts a session. Config holds settings in the same shape as
// update_config.
type StartPayload struct {
	Config map[string]any `json:"config,omitempty"`
}

// UpdateConfigPayload changes settings of the running session.
type UpdateConfigPayload struct {
	Partial map[string]any `json:"partial"`
}

// SpeechDonePayload reports the end of a speak request.
type SpeechDonePayload struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// VolumesPayload answers get_volumes.
type VolumesPayload struct {
	RequestID string          `json:"request_id"`
	Videos    []ducking.Video `json:"videos"`
}

// SpeakPayload asks the page to speak with its own speech synthesis.
type SpeakPayload struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Rate  float64 `json:"rate"`
	Lang  string  `json:"lang"`
	Voice string  `json:"voice,omitempty"`
}

// GetVolumesPayload asks for every video's volume.
type GetVolumesPayload struct {
	RequestID string `json:"request_id"`
}

// SetVolumePayload sets one video's volume.
type SetVolumePayload struct {
	ID     string  `json:"id"`
	Volume float64 `json:"volume"`
}

// NoticePayload is shown to the viewer as an overlay.
type NoticePayload struct {
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
}

// StatusPayload reports the session state.
type StatusPayload struct {
	State   string  `json:"state"`
	Backend string  `json:"backend"`
	Rate    float64 `json:"rate"`
	Queue   int     `json:"queue"`
	Current string  `json:"current,omitempty"`
}
