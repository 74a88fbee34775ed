package session

import (
	"context"
	"errors"
	"time"

	"github.com/voicepal/voicepal/internal/caption"
	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/playback"
	"github.com/voicepal/voicepal/internal/speech"
)

type event interface{}

type (
	snapshotEvent struct{ snap caption.Snapshot }
	stopEvent     struct{ done chan struct{} }
	configEvent   struct {
		tts    config.TTS
		result chan error
	}
	queryEvent  struct{ fn func() }
	noticeEvent struct{ message string }
	drainEvent  struct{}
	doneEvent   struct {
		token uint64
		id    string
		text  string
		res   speech.Result
		err   error
	}
)

func (s *Session) run() {
	defer close(s.done)

	s.observer.Status(s.Status())
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case snap := <-s.coalescer.Out():
			s.ingest(snap)
		case ev := <-s.events:
			s.handle(ev)
		}
		s.publish()
	}
}

func (s *Session) handle(ev event) {
	switch ev := ev.(type) {
	case snapshotEvent:
		s.ingest(ev.snap)

	case doneEvent:
		s.completed(ev)

	case drainEvent:
		s.scheduler.Drain()

	case stopEvent:
		s.stop()
		s.publish()
		close(ev.done)

	case configEvent:
		err := s.reconfigure(ev.tts)
		s.publish()
		ev.result <- err

	case queryEvent:
		ev.fn()

	case noticeEvent:
		s.observer.Notice(ev.message)
	}
}

func (s *Session) ingest(snap caption.Snapshot) {
	u, decision := s.processor.Process(snap)
	if decision != caption.Speak {
		return
	}
	logger.Debug("utterance queued", "id", u.ID, "text", u.Text, "queue", s.scheduler.Len())
	s.scheduler.Enqueue(u)
}

// launch starts playback of u. It runs on the session goroutine; the
// playback itself runs in its own goroutine and reports back with token.
func (s *Session) launch(ctx context.Context, token uint64, u caption.Utterance) {
	req := speech.Request{
		ID:   u.ID,
		Text: u.Text,
		Rate: s.rate.Next(s.processor.Cadence()),
		Language: speech.ResolveLanguage(u.IsTranslated,
			s.tts.TargetLanguage, s.tts.SourceLanguage, s.tts.DefaultLanguage),
		Voice: s.tts.Voice,
	}
	s.processor.MarkSpoken(u.Text, s.now())
	s.last = u.Text

	logger.Debug("speaking", "id", u.ID, "text", u.Text, "rate", req.Rate, "lang", req.Language)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		lease, err := s.ducker.Acquire(ctx)
		if err != nil {
			logger.Warn("failed to duck video volume", "err", err)
		}

		res, err := s.speaker.Speak(ctx, req)

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		if rerr := lease.Release(rctx); rerr != nil {
			logger.Warn("failed to restore video volume", "err", rerr)
		}
		cancel()

		select {
		case s.events <- doneEvent{token: token, id: u.ID, text: u.Text, res: res, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) completed(ev doneEvent) {
	switch {
	case ev.err == nil:
		logger.Debug("spoken", "id", ev.id, "backend", ev.res.Backend, "fellback", ev.res.FellBack)
	case errors.Is(ev.err, context.Canceled):
		logger.Debug("playback cancelled", "id", ev.id)
	case speech.IsNoSynthesis(ev.err):
		logger.Error("no speech synthesis available", "id", ev.id, "err", ev.err)
		s.observer.Notice("No speech synthesis available: " + ev.err.Error())
	default:
		logger.Warn("speech failed", "id", ev.id, "text", ev.text, "err", ev.err)
		s.observer.Notice("Speech failed: " + ev.err.Error())
	}

	if s.scheduler.Complete(ev.token, ev.err) {
		time.AfterFunc(s.errorDelay(), func() {
			select {
			case s.events <- drainEvent{}:
			case <-s.done:
			}
		})
	}
}

func (s *Session) errorDelay() time.Duration {
	if d := s.opts.Pipeline.ErrorDelay; d > 0 {
		return d
	}
	return playback.DefaultErrorDelay
}

func (s *Session) stop() {
	s.scheduler.ForceStop()
	s.speaker.Cancel()
	s.restore()
	s.processor.Reset()
	s.rate.Reset()
	s.last = ""
	logger.Info("force stopped", "id", s.id)
}

func (s *Session) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := s.ducker.Restore(ctx); err != nil {
		logger.Warn("failed to restore video volume", "err", err)
	}
}

func (s *Session) reconfigure(tts config.TTS) error {
	kind, err := tts.Kind()
	if err != nil {
		return err
	}
	s.tts = tts
	s.speaker.Configure(kind, s.backends(tts)...)
	s.processor.SetTranslated(tts.Translated)
	logger.Info("configuration updated", "backend", kind)
	return nil
}

func (s *Session) shutdown() {
	s.scheduler.ForceStop()
	s.speaker.Cancel()
	s.restore()
	s.publish()
}

func (s *Session) publish() {
	st := Status{
		SessionID: s.id,
		State:     s.scheduler.State(),
		Backend:   s.speaker.Configured(),
		Rate:      s.rate.Current(),
		Queue:     s.scheduler.Len(),
		Last:      s.last,
		Stats:     s.scheduler.Stats(),
	}
	if cur, ok := s.scheduler.Current(); ok {
		st.Current = cur.Text
	}

	s.statusMu.Lock()
	changed := st != s.status
	s.status = st
	s.statusMu.Unlock()

	if changed {
		s.observer.Status(st)
	}
}
