package caption

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Coalescer defaults.
const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMinInterval = 500 * time.Millisecond
)

// Coalescer turns bursty snapshot notifications into a bounded-rate stream.
// A snapshot is emitted once no newer one arrived for the quiet period, and
// never sooner than the minimum interval after the previous emission. Only
// the latest pending snapshot survives.
type Coalescer struct {
	quiet   time.Duration
	limiter *rate.Limiter

	mu      sync.Mutex
	pending *Snapshot
	notify  chan struct{}
	out     chan Snapshot
}

// NewCoalescer creates a coalescer. Non-positive durations disable the
// corresponding bound.
func NewCoalescer(quiet, minInterval time.Duration) *Coalescer {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Coalescer{
		quiet:   quiet,
		limiter: rate.NewLimiter(limit, 1),
		notify:  make(chan struct{}, 1),
		out:     make(chan Snapshot),
	}
}

// Push records a snapshot, replacing any snapshot not yet emitted. It never
// blocks.
func (c *Coalescer) Push(s Snapshot) {
	c.mu.Lock()
	c.pending = &s
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Out returns the channel of coalesced snapshots.
func (c *Coalescer) Out() <-chan Snapshot {
	return c.out
}

// Run emits coalesced snapshots until ctx is done.
func (c *Coalescer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.notify:
		}

		if !c.settle(ctx) {
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		c.mu.Lock()
		s := c.pending
		c.pending = nil
		c.mu.Unlock()
		if s == nil {
			continue
		}

		select {
		case c.out <- *s:
		case <-ctx.Done():
			return
		}
	}
}

// settle waits until no notification arrived for the quiet period.
func (c *Coalescer) settle(ctx context.Context) bool {
	if c.quiet <= 0 {
		return true
	}

	timer := time.NewTimer(c.quiet)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.notify:
			timer.Reset(c.quiet)
		case <-timer.C:
			return true
		}
	}
}
