package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/internal/speech"
	"github.com/voicepal/voicepal/internal/speech/engines/mock"
)

func TestFeedTranscript(t *testing.T) {
	custom := mock.New(speech.Custom)
	custom.SetDelay(10 * time.Millisecond)

	cfg := config.Default()
	cfg.TTS.Backend = "custom"
	cfg.Pipeline.QuietPeriod = 0
	cfg.Pipeline.MinInterval = 0

	sess, err := session.New(session.Options{
		Pipeline: cfg.Pipeline,
		TTS:      cfg.TTS,
		Backends: func(config.TTS) []speech.Backend { return []speech.Backend{custom} },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sess.Close() //nolint:errcheck

	transcript := "Hello\n\n  Hello there  \n"
	if err := feedTranscript(ctx, sess, strings.NewReader(transcript), 50*time.Millisecond); err != nil {
		t.Fatalf("feedTranscript: %v", err)
	}
	if err := waitIdle(ctx, sess); err != nil {
		t.Fatalf("waitIdle: %v", err)
	}

	want := []string{"Hello", "there"}
	if got := custom.Texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("spoken %q, want %q", got, want)
	}
}

func TestOpenTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.txt")
	if err := os.WriteFile(path, []byte("line\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := openTranscript([]string{path})
	if err != nil {
		t.Fatalf("openTranscript: %v", err)
	}
	_ = r.Close()

	if _, err := openTranscript([]string{filepath.Join(t.TempDir(), "missing.txt")}); err == nil {
		t.Error("expected error for missing file")
	}
}
