package speech

import "testing"

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		name       string
		translated bool
		target     string
		source     string
		fallback   string
		want       string
	}{
		{"translated uses target", true, "ja-JP", "en-US", "", "ja-JP"},
		{"original uses source", false, "ja-JP", "fr-FR", "", "fr-FR"},
		{"auto source uses fallback", false, "ja-JP", "auto", "zh-CN", "zh-CN"},
		{"nothing configured", false, "", "", "", DefaultLanguage},
		{"tag canonicalized", true, "zh-cn", "", "", "zh-CN"},
		{"unparseable passed through", true, "not a tag!", "", "", "not a tag!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLanguage(tt.translated, tt.target, tt.source, tt.fallback); got != tt.want {
				t.Errorf("ResolveLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"browser", Browser, false},
		{"", Browser, false},
		{"ElevenLabs", ElevenLabs, false},
		{"customapi", Custom, false},
		{"piper", Browser, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestError(t *testing.T) {
	cause := ErrMissingCredentials
	err := NewError(CodeUnavailable, ElevenLabs, "no api key", cause)
	if !err.IsFatal() || err.IsRetryable() {
		t.Errorf("unavailable error: fatal %v, retryable %v", err.IsFatal(), err.IsRetryable())
	}

	status := &Error{Code: CodeStatus, Backend: Custom, Message: "bad gateway", StatusCode: 502}
	if !status.IsRetryable() {
		t.Error("502 should be retryable")
	}
	if got, want := status.Error(), "custom STATUS: bad gateway (HTTP 502)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
