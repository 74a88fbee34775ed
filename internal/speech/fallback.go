package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Attempt is one step of a fallback plan.
type Attempt struct {
	Backend Kind
	// Notice is shown to the viewer when this attempt is reached after the
	// configured backend was skipped or failed.
	Notice string
}

// Plan returns the ordered backends to try for one utterance. Browser speech
// is tried alone. A cloud or self-hosted backend missing its credentials is
// replaced by Browser up front; otherwise it is tried first and Browser is
// the single fallback.
func Plan(configured Kind, available func(Kind) error) []Attempt {
	if configured == Browser {
		return []Attempt{{Backend: Browser}}
	}

	if err := available(configured); err != nil {
		return []Attempt{{
			Backend: Browser,
			Notice:  fmt.Sprintf("%s unavailable (%v), fell back to browser speech", configured, err),
		}}
	}

	return []Attempt{
		{Backend: configured},
		{Backend: Browser, Notice: fmt.Sprintf("%s failed, fell back to browser speech", configured)},
	}
}

// Result describes how an utterance was spoken.
type Result struct {
	Backend  Kind
	FellBack bool
	Notices  []string
}

// Speaker dispatches utterances to the configured backend and applies the
// fallback plan.
type Speaker struct {
	mu         sync.RWMutex
	backends   map[Kind]Backend
	configured Kind
	notify     Notifier
}

// NewSpeaker creates a speaker over the given backends. notify may be nil.
func NewSpeaker(configured Kind, notify Notifier, backends ...Backend) *Speaker {
	if notify == nil {
		notify = discardNotifier{}
	}
	s := &Speaker{
		backends:   make(map[Kind]Backend, len(backends)),
		configured: configured,
		notify:     notify,
	}
	for _, b := range backends {
		s.backends[b.Kind()] = b
	}
	return s
}

// Configured returns the configured backend kind.
func (s *Speaker) Configured() Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

// Configure switches the configured backend and replaces any backends given.
func (s *Speaker) Configure(configured Kind, backends ...Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = configured
	for _, b := range backends {
		s.backends[b.Kind()] = b
	}
}

// Backend returns the registered backend of the given kind.
func (s *Speaker) Backend(k Kind) (Backend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.backends[k]
	return b, ok
}

func (s *Speaker) available(k Kind) error {
	b, ok := s.Backend(k)
	if !ok {
		return fmt.Errorf("%w: %s not registered", ErrMissingCredentials, k)
	}
	return b.Available()
}

// Speak plays req, falling back per Plan. A cancelled ctx ends the attempt
// without falling back.
func (s *Speaker) Speak(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.Text == "" {
		return res, ErrEmptyText
	}

	// speakErr is the first backend that tried and failed; it outranks a
	// fallback that could not run.
	var speakErr, lastErr error
	for i, a := range Plan(s.Configured(), s.available) {
		if a.Notice != "" {
			res.FellBack = true
			res.Notices = append(res.Notices, a.Notice)
			s.notify.Notice(a.Notice)
			logger.Warn("falling back", "backend", a.Backend, "notice", a.Notice)
		}

		b, ok := s.Backend(a.Backend)
		if !ok {
			lastErr = fmt.Errorf("%w: %s not registered", ErrNoSynthesis, a.Backend)
			continue
		}
		if err := b.Available(); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrNoSynthesis, err)
			continue
		}

		err := b.Speak(ctx, req)
		if err == nil {
			res.Backend = a.Backend
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		logger.Warn("backend failed", "backend", a.Backend, "attempt", i+1, "err", err)
		if speakErr == nil {
			speakErr = err
		}
		lastErr = err
	}

	if speakErr != nil {
		return res, speakErr
	}
	if lastErr == nil {
		lastErr = ErrNoSynthesis
	}
	return res, lastErr
}

// Cancel stops playback on every backend.
func (s *Speaker) Cancel() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.backends {
		b.Cancel()
	}
}

// IsNoSynthesis reports whether err means nothing could speak.
func IsNoSynthesis(err error) bool {
	return errors.Is(err, ErrNoSynthesis)
}
