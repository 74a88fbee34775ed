package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voicepal/voicepal/internal/speech"
)

func TestBackend_RecordsRequests(t *testing.T) {
	b := New(speech.Custom)
	if b.Kind() != speech.Custom {
		t.Errorf("Kind() = %v", b.Kind())
	}

	if err := b.Speak(context.Background(), speech.Request{Text: "one"}); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := b.Texts(); len(got) != 1 || got[0] != "one" {
		t.Errorf("Texts() = %v", got)
	}
}

func TestBackend_FailureAndCancel(t *testing.T) {
	b := New(speech.Browser)
	want := errors.New("boom")
	b.SetFailure(want)

	if err := b.Speak(context.Background(), speech.Request{Text: "x"}); !errors.Is(err, want) {
		t.Errorf("Speak error = %v, want %v", err, want)
	}

	b.SetFailure(nil)
	b.SetDelay(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Speak(ctx, speech.Request{Text: "y"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Speak error = %v, want deadline exceeded", err)
	}
	if b.CallCount() != 2 {
		t.Errorf("CallCount() = %d, want 2", b.CallCount())
	}
}
