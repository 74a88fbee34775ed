package engines

import (
	"context"
	"errors"
	"sync"

	"github.com/voicepal/voicepal/internal/speech"
)

// ErrNoPage indicates that no page agent is connected to speak through.
var ErrNoPage = errors.New("no page agent connected")

// PageSpeaker is the page agent's built-in speech synthesis. Speak returns
// once the page reports the utterance finished.
type PageSpeaker interface {
	Connected() bool
	Speak(ctx context.Context, req speech.Request) error
	CancelSpeech()
}

// Browser speaks through the page agent. The rate and language are passed
// through unchanged.
type Browser struct {
	mu   sync.RWMutex
	page PageSpeaker
}

// NewBrowser creates a browser backend. page may be nil until an agent
// connects.
func NewBrowser(page PageSpeaker) *Browser {
	return &Browser{page: page}
}

// Attach sets the page agent to speak through. nil detaches it.
func (b *Browser) Attach(page PageSpeaker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
}

func (b *Browser) current() PageSpeaker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

// Kind implements speech.Backend.
func (b *Browser) Kind() speech.Kind { return speech.Browser }

// Available implements speech.Backend.
func (b *Browser) Available() error {
	page := b.current()
	if page == nil || !page.Connected() {
		return speech.NewError(speech.CodeUnavailable, speech.Browser, "cannot speak", ErrNoPage)
	}
	return nil
}

// Speak implements speech.Backend.
func (b *Browser) Speak(ctx context.Context, req speech.Request) error {
	if req.Text == "" {
		return speech.ErrEmptyText
	}
	if err := b.Available(); err != nil {
		return err
	}

	err := b.current().Speak(ctx, req)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return speech.NewError(speech.CodeAudio, speech.Browser, "page speech failed", err)
	}
}

// Cancel implements speech.Backend.
func (b *Browser) Cancel() {
	if page := b.current(); page != nil {
		page.CancelSpeech()
	}
}
