package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voicepal/voicepal/internal/audio"
	"github.com/voicepal/voicepal/internal/speech"
)

func testWAV() audio.Clip {
	// 100 ms of 22.05 kHz stereo.
	pcm := make([]byte, 2205*4)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = byte(i)
	}
	return audio.Clip{Format: audio.Format{SampleRate: 22050, Channels: 2}, PCM: pcm}
}

func TestCustom_Speak(t *testing.T) {
	clip := testWAV()
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio.EncodeWAV(clip))
	}))
	defer srv.Close()

	player := audio.NewMockPlayer(audio.DefaultFormat, 0)
	e := NewCustom(CustomConfig{
		URL:      srv.URL + "/",
		Headers:  map[string]string{"Authorization": "Bearer t"},
		RefAudio: "speaker.wav",
		Player:   player,
		Client:   srv.Client(),
	})

	req := speech.Request{Text: "你好", Language: "zh-CN", Rate: 2}
	if err := e.Speak(context.Background(), req); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	if auth != "Bearer t" {
		t.Errorf("Authorization = %q", auth)
	}
	if got["text"] != "你好" || got["language"] != "zh-CN" || got["ref_audio"] != "speaker.wav" {
		t.Errorf("request body = %v", got)
	}
	if got["emphasize"] != float64(0) || got["denoise"] != float64(0) {
		t.Errorf("emphasize/denoise = %v/%v", got["emphasize"], got["denoise"])
	}

	want, err := audio.Convert(clip, audio.DefaultFormat, 2)
	if err != nil {
		t.Fatal(err)
	}
	clips := player.Clips()
	if len(clips) != 1 || !bytes.Equal(clips[0], want) {
		t.Fatalf("played audio does not match the converted clip")
	}
	if d := audio.DefaultFormat.Duration(len(clips[0])); d < 45e6 || d > 55e6 {
		t.Errorf("played duration = %v, want about 50ms at double speed", d)
	}
}

func TestCustom_OmitsEmptyRefAudio(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(audio.EncodeWAV(testWAV()))
	}))
	defer srv.Close()

	e := NewCustom(CustomConfig{URL: srv.URL, Player: audio.NewMockPlayer(audio.DefaultFormat, 0), Client: srv.Client()})
	if err := e.Speak(context.Background(), speech.Request{Text: "hi", Rate: 1}); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["ref_audio"]; ok {
		t.Errorf("ref_audio sent without configuration: %v", got)
	}
}

func TestCustom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    speech.ErrorCode
	}{
		{
			name:    "not wav",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ID3 mp3 data")) },
			code:    speech.CodeAudio,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "model not loaded", http.StatusServiceUnavailable) },
			code:    speech.CodeStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e := NewCustom(CustomConfig{URL: srv.URL, Player: audio.NewMockPlayer(audio.DefaultFormat, 0), Client: srv.Client()})
			err := e.Speak(context.Background(), speech.Request{Text: "hi", Rate: 1})
			var se *speech.Error
			if !errors.As(err, &se) || se.Code != tt.code {
				t.Errorf("Speak error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestCustom_Unavailable(t *testing.T) {
	e := NewCustom(CustomConfig{Player: audio.NewMockPlayer(audio.DefaultFormat, 0)})
	err := e.Available()
	if !errors.Is(err, speech.ErrMissingCredentials) {
		t.Errorf("Available() = %v, want ErrMissingCredentials", err)
	}
	var se *speech.Error
	if !errors.As(err, &se) || !se.IsFatal() {
		t.Errorf("missing URL should be fatal, got %v", err)
	}
}
