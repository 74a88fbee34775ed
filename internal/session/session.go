// Package session runs one caption-to-speech pipeline: snapshots in, spoken
// utterances out, from start until stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voicepal/voicepal/internal/caption"
	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/ducking"
	"github.com/voicepal/voicepal/internal/playback"
	"github.com/voicepal/voicepal/internal/speech"
)

var logger = log.WithPrefix("session")

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// restoreTimeout bounds volume restoration after playback was cancelled.
const restoreTimeout = 2 * time.Second

// BackendFactory builds the provider backends for a TTS configuration. The
// browser backend is long-lived and passed to New separately.
type BackendFactory func(tts config.TTS) []speech.Backend

// Observer receives status changes and viewer notices. Methods are called
// from the session goroutine and must not block.
type Observer interface {
	Status(Status)
	Notice(message string)
}

// Options configure a Session.
type Options struct {
	Pipeline config.Pipeline
	TTS      config.TTS
	// Browser speaks through the page agent. It may be nil.
	Browser speech.Backend
	// Backends builds provider backends; nil means browser only.
	Backends BackendFactory
	// Videos is ducked during playback. It may be nil.
	Videos   ducking.VideoHost
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session owns a processor, scheduler and rate controller, all driven by a
// single goroutine.
type Session struct {
	id        string
	opts      Options
	now       func() time.Time
	speaker   *speech.Speaker
	ducker    *ducking.Controller
	coalescer *caption.Coalescer
	observer  Observer

	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	statusMu sync.RWMutex
	status   Status

	// Owned by the run goroutine.
	tts       config.TTS
	processor *caption.Processor
	scheduler *playback.Scheduler
	rate      *speech.RateController
	last      string
}

// New creates a session. Call Start to begin processing.
func New(opts Options) (*Session, error) {
	tts := opts.TTS.Clone()
	if err := tts.Validate(); err != nil {
		return nil, err
	}
	kind, _ := tts.Kind()

	s := &Session{
		id:       uuid.NewString(),
		opts:     opts,
		now:      opts.Now,
		observer: opts.Observer,
		events:   make(chan event, 16),
		done:     make(chan struct{}),
		tts:      tts,
		rate:     speech.NewRateController(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}

	p := opts.Pipeline
	s.ducker = ducking.New(opts.Videos, p.DuckFloor, p.DuckRatio)
	s.coalescer = caption.NewCoalescer(p.QuietPeriod, p.MinInterval)
	s.processor = caption.NewProcessor(processorOptions(p, tts.Translated))

	s.speaker = speech.NewSpeaker(kind, speech.NotifierFunc(s.notice), s.backends(tts)...)

	s.status = Status{SessionID: s.id, State: playback.Idle, Backend: kind, Rate: s.rate.Current()}
	return s, nil
}

func processorOptions(p config.Pipeline, translated bool) caption.Options {
	opts := caption.DefaultOptions()
	opts.Filter = caption.Filter{MinLength: p.MinLength, MaxLength: p.MaxLength}
	opts.Similarity = caption.Similarity{
		Threshold:   p.SimilarityThreshold,
		ShortLength: p.ShortLength,
		LengthSlack: p.LengthSlack,
	}
	opts.CadenceCapacity = p.CadenceHistory
	opts.SpokenCapacity = p.SpokenHistory
	opts.Translated = translated
	return opts
}

func (s *Session) backends(tts config.TTS) []speech.Backend {
	var out []speech.Backend
	if s.opts.Browser != nil {
		out = append(out, s.opts.Browser)
	}
	if s.opts.Backends != nil {
		out = append(out, s.opts.Backends(tts)...)
	}
	return out
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start begins processing. ctx bounds the session's lifetime.
func (s *Session) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	s.startOnce.Do(func() {
		err = nil
		s.ctx, s.cancel = context.WithCancel(ctx)
		s.scheduler = playback.New(s.ctx, s.launch, playback.Options{
			MaxBacklog:     s.opts.Pipeline.MaxBacklog,
			InterruptAfter: s.opts.Pipeline.InterruptAfter,
		})

		logger.Info("session started", "id", s.id, "backend", s.tts.Backend)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.coalescer.Run(s.ctx)
		}()
		go s.run()
		s.started.Store(true)
	})
	return err
}

// Submit hands a caption snapshot to the coalescer. Bursts collapse to the
// latest snapshot.
func (s *Session) Submit(text string) {
	s.coalescer.Push(caption.Snapshot{Text: text, ObservedAt: s.now()})
}

// Ingest processes a snapshot without coalescing, for sources that deliver
// finished captions.
func (s *Session) Ingest(ctx context.Context, snap caption.Snapshot) error {
	return s.post(ctx, snapshotEvent{snap})
}

// ForceStop cancels playback, restores video volume and clears the queue
// and histories. It returns once the session is idle.
func (s *Session) ForceStop(ctx context.Context) error {
	done := make(chan struct{})
	if err := s.post(ctx, stopEvent{done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateConfiguration replaces the TTS configuration. Utterances already
// queued are spoken with the new settings.
func (s *Session) UpdateConfiguration(ctx context.Context, tts config.TTS) error {
	tts = tts.Clone()
	if err := tts.Validate(); err != nil {
		return err
	}
	result := make(chan error, 1)
	if err := s.post(ctx, configEvent{tts, result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TTS returns a copy of the TTS configuration in use.
func (s *Session) TTS(ctx context.Context) (config.TTS, error) {
	result := make(chan config.TTS, 1)
	if err := s.post(ctx, queryEvent{func() { result <- s.tts.Clone() }}); err != nil {
		return config.TTS{}, err
	}
	select {
	case t := <-result:
		return t, nil
	case <-s.done:
		return config.TTS{}, ErrClosed
	case <-ctx.Done():
		return config.TTS{}, ctx.Err()
	}
}

// Status returns the latest published status.
func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Close force-stops the session and waits for its goroutines to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if !s.started.Load() {
			s.startOnce.Do(func() {})
			close(s.done)
			return
		}
		s.cancel()
		<-s.done
		s.wg.Wait()
		logger.Info("session closed", "id", s.id, "stats", fmt.Sprintf("%+v", s.Status().Stats))
	})
	return nil
}

// Done is closed when the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) post(ctx context.Context, ev event) error {
	if !s.started.Load() {
		return fmt.Errorf("%w: not started", ErrClosed)
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notice forwards a viewer notice through the session goroutine.
func (s *Session) notice(message string) {
	select {
	case s.events <- noticeEvent{message}:
	case <-s.done:
	}
}

type nopObserver struct{}

func (nopObserver) Status(Status) {}
func (nopObserver) Notice(string) {}
