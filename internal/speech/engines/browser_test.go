package engines

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voicepal/voicepal/internal/speech"
)

type fakePage struct {
	mu        sync.Mutex
	connected bool
	failure   error
	spoken    []speech.Request
	cancels   int
}

func (p *fakePage) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePage) Speak(ctx context.Context, req speech.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spoken = append(p.spoken, req)
	return p.failure
}

func (p *fakePage) CancelSpeech() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
}

func TestBrowser_Available(t *testing.T) {
	b := NewBrowser(nil)
	if err := b.Available(); !errors.Is(err, ErrNoPage) {
		t.Errorf("Available() without page = %v, want ErrNoPage", err)
	}

	page := &fakePage{}
	b.Attach(page)
	if err := b.Available(); err == nil {
		t.Error("Available() with disconnected page = nil")
	}

	page.connected = true
	if err := b.Available(); err != nil {
		t.Errorf("Available() = %v", err)
	}
}

func TestBrowser_SpeakPassesRequestThrough(t *testing.T) {
	page := &fakePage{connected: true}
	b := NewBrowser(page)

	req := speech.Request{ID: "1", Text: "hola", Rate: 1.4, Language: "es-ES", Voice: "Monica"}
	if err := b.Speak(context.Background(), req); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(page.spoken) != 1 || page.spoken[0] != req {
		t.Errorf("page got %+v, want %+v", page.spoken, req)
	}

	b.Cancel()
	if page.cancels != 1 {
		t.Errorf("cancels = %d, want 1", page.cancels)
	}
}

func TestBrowser_SpeakFailure(t *testing.T) {
	page := &fakePage{connected: true, failure: errors.New("synthesis-failed")}
	b := NewBrowser(page)

	err := b.Speak(context.Background(), speech.Request{Text: "hi"})
	var se *speech.Error
	if !errors.As(err, &se) || se.Code != speech.CodeAudio {
		t.Fatalf("Speak error = %v, want CodeAudio", err)
	}

	if err := b.Speak(context.Background(), speech.Request{}); !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("empty text error = %v", err)
	}
}
