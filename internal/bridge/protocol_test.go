package bridge

import (
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(TypeSpeak, SpeakPayload{ID: "u1", Text: "hola", Rate: 1.4, Lang: "es-ES"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"speak"`) {
		t.Errorf("frame = %s", data)
	}

	env, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	var p SpeakPayload
	if err := env.Bind(&p); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeSpeak || p.Text != "hola" || p.Rate != 1.4 || p.Lang != "es-ES" {
		t.Errorf("decoded %s %+v", env.Type, p)
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	data, err := Encode(TypeCancelSpeech, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"cancel_speech"}` {
		t.Errorf("frame = %s", data)
	}
}

func TestDecodeInboundMessages(t *testing.T) {
	env, err := Decode([]byte(`{"type":"volumes","payload":{"request_id":"r1","videos":[{"id":"v1","volume":0.8},{"id":"v2","volume":1,"muted":true}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	var v VolumesPayload
	if err := env.Bind(&v); err != nil {
		t.Fatal(err)
	}
	if v.RequestID != "r1" || len(v.Videos) != 2 || v.Videos[0].Volume != 0.8 || !v.Videos[1].Muted {
		t.Errorf("volumes = %+v", v)
	}

	env, err = Decode([]byte(`{"type":"update_config","payload":{"partial":{"ttsService":"customapi","customApiUrl":"http://localhost:9880"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	var u UpdateConfigPayload
	if err := env.Bind(&u); err != nil {
		t.Fatal(err)
	}
	if u.Partial["ttsService"] != "customapi" {
		t.Errorf("partial = %v", u.Partial)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `caption: hello`},
		{"missing type", `{"payload":{"text":"hi"}}`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode(%q) = nil error", tt.input)
			}
		})
	}

	env := Envelope{Type: TypeCaption, Payload: []byte(`{"text":42}`)}
	var p CaptionPayload
	if err := env.Bind(&p); err == nil {
		t.Error("Bind accepted a number as text")
	}
}
