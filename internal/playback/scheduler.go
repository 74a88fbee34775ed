package playback

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voicepal/voicepal/internal/caption"
)

var logger = log.WithPrefix("playback")

// Scheduler defaults.
const (
	DefaultMaxBacklog     = 2
	DefaultInterruptAfter = 2 * time.Second
	DefaultErrorDelay     = 100 * time.Millisecond
)

// Launcher starts playing u in the background. It must return promptly and
// later report the outcome with Scheduler.Complete(token, err) on the
// goroutine that owns the scheduler. ctx is cancelled when the utterance is
// interrupted or the scheduler is force-stopped.
type Launcher func(ctx context.Context, token uint64, u caption.Utterance)

// Options tunes a Scheduler.
type Options struct {
	// MaxBacklog is the number of pending utterances (queued plus in
	// flight) tolerated before the queue is cleared for a new arrival.
	MaxBacklog int
	// InterruptAfter is the caption gap that makes an in-flight utterance
	// stale.
	InterruptAfter time.Duration
}

// DefaultOptions returns the default scheduling policy.
func DefaultOptions() Options {
	return Options{
		MaxBacklog:     DefaultMaxBacklog,
		InterruptAfter: DefaultInterruptAfter,
	}
}

// Scheduler is a single-consumer utterance queue.
type Scheduler struct {
	base   context.Context
	launch Launcher
	opts   Options

	state   State
	queue   []caption.Utterance
	current *caption.Utterance
	token   uint64
	cancel  context.CancelFunc

	// holding suspends dequeueing until Drain after a failed playback.
	holding     bool
	lastArrival time.Time

	stats Stats
}

// New creates an idle scheduler. Playback contexts derive from ctx.
func New(ctx context.Context, launch Launcher, opts Options) *Scheduler {
	return &Scheduler{
		base:   ctx,
		launch: launch,
		opts:   opts,
	}
}

// Enqueue adds u to the queue and starts it when nothing is playing.
func (s *Scheduler) Enqueue(u caption.Utterance) {
	s.stats.Enqueued++

	if s.backlog() > s.opts.MaxBacklog && len(s.queue) > 0 {
		logger.Debug("backlog cleared", "dropped", len(s.queue))
		s.stats.Dropped += int64(len(s.queue))
		s.queue = s.queue[:0]
	}

	if s.state == Speaking && !s.lastArrival.IsZero() &&
		u.EnqueuedAt.Sub(s.lastArrival) > s.opts.InterruptAfter {
		s.interrupt()
	}
	s.lastArrival = u.EnqueuedAt

	s.queue = append(s.queue, u)
	if s.state == Idle && !s.holding {
		s.next()
	}
}

// Complete reports the end of the playback identified by token. Reports for
// interrupted or force-stopped playbacks are ignored. It returns true when
// the playback failed and the caller should call Drain after the error
// delay.
func (s *Scheduler) Complete(token uint64, err error) (retry bool) {
	if s.state != Speaking || token != s.token {
		return false
	}

	s.release()
	if err != nil {
		s.stats.Failed++
		s.holding = true
		return true
	}

	s.stats.Completed++
	s.next()
	return false
}

// Drain resumes dequeueing after a failed playback.
func (s *Scheduler) Drain() {
	s.holding = false
	if s.state == Idle {
		s.next()
	}
}

// ForceStop cancels the in-flight playback and empties the queue.
func (s *Scheduler) ForceStop() {
	if s.state == Speaking {
		s.stats.Interrupted++
	}
	s.release()
	s.stats.Dropped += int64(len(s.queue))
	s.queue = nil
	s.holding = false
	s.lastArrival = time.Time{}
	s.token++
}

// State returns the current playback state.
func (s *Scheduler) State() State { return s.state }

// Len returns the number of queued utterances, excluding the one in flight.
func (s *Scheduler) Len() int { return len(s.queue) }

// Current returns the utterance in flight.
func (s *Scheduler) Current() (caption.Utterance, bool) {
	if s.current == nil {
		return caption.Utterance{}, false
	}
	return *s.current, true
}

// Stats returns the scheduler counters.
func (s *Scheduler) Stats() Stats { return s.stats }

func (s *Scheduler) backlog() int {
	n := len(s.queue)
	if s.state == Speaking {
		n++
	}
	return n
}

func (s *Scheduler) interrupt() {
	if cur, ok := s.Current(); ok {
		logger.Debug("interrupting stale utterance", "id", cur.ID, "text", cur.Text)
	}
	s.stats.Interrupted++
	s.release()
}

// release cancels the in-flight playback, if any, and returns to Idle.
func (s *Scheduler) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = nil
	s.state = Idle
}

func (s *Scheduler) next() {
	if s.state != Idle || len(s.queue) == 0 {
		return
	}

	u := s.queue[0]
	s.queue = s.queue[1:]

	s.token++
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.current = &u
	s.state = Speaking
	s.stats.Started++

	s.launch(ctx, s.token, u)
}
