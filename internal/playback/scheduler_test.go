package playback

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/voicepal/voicepal/internal/caption"
)

type launch struct {
	ctx   context.Context
	token uint64
	u     caption.Utterance
	done  bool
}

type fakeLauncher struct {
	launches []*launch
}

func (f *fakeLauncher) Launch(ctx context.Context, token uint64, u caption.Utterance) {
	f.launches = append(f.launches, &launch{ctx: ctx, token: token, u: u})
}

func (f *fakeLauncher) last() *launch {
	if len(f.launches) == 0 {
		return nil
	}
	return f.launches[len(f.launches)-1]
}

// active counts launches that are neither cancelled nor reported complete.
func (f *fakeLauncher) active() int {
	n := 0
	for _, l := range f.launches {
		if !l.done && l.ctx.Err() == nil {
			n++
		}
	}
	return n
}

func newTestScheduler() (*Scheduler, *fakeLauncher) {
	f := &fakeLauncher{}
	return New(context.Background(), f.Launch, DefaultOptions()), f
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func utt(text string, offset time.Duration) caption.Utterance {
	return caption.Utterance{ID: text, Text: text, EnqueuedAt: t0.Add(offset)}
}

func TestScheduler_IdleEnqueueStartsImmediately(t *testing.T) {
	s, f := newTestScheduler()

	s.Enqueue(utt("a", 0))

	if s.State() != Speaking {
		t.Fatalf("State() = %v, want %v", s.State(), Speaking)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if l := f.last(); l == nil || l.u.Text != "a" {
		t.Fatalf("launcher not called with first utterance")
	}
	if cur, ok := s.Current(); !ok || cur.Text != "a" {
		t.Errorf("Current() = %v, %v", cur, ok)
	}
}

func TestScheduler_SpeaksInOrder(t *testing.T) {
	s, f := newTestScheduler()

	s.Enqueue(utt("a", 0))
	s.Enqueue(utt("b", 500*time.Millisecond))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if retry := s.Complete(f.last().token, nil); retry {
		t.Error("successful completion asked for retry")
	}
	if l := f.last(); l.u.Text != "b" {
		t.Errorf("second launch = %q, want %q", l.u.Text, "b")
	}
	s.Complete(f.last().token, nil)
	if s.State() != Idle {
		t.Errorf("State() = %v after draining, want %v", s.State(), Idle)
	}
	if got := s.Stats().Completed; got != 2 {
		t.Errorf("Completed = %d, want 2", got)
	}
}

func TestScheduler_BackpressureClearsStaleQueue(t *testing.T) {
	s, _ := newTestScheduler()

	s.Enqueue(utt("1", 0))
	s.Enqueue(utt("2", 0))
	s.Enqueue(utt("3", 0))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d before 4th item, want 2", s.Len())
	}

	s.Enqueue(utt("4", 0))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d after 4th item, want 1", s.Len())
	}
	if s.queue[0].Text != "4" {
		t.Errorf("queued %q, want the new item", s.queue[0].Text)
	}
	if got := s.Stats().Dropped; got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
	if cur, _ := s.Current(); cur.Text != "1" {
		t.Errorf("in-flight utterance = %q, want it untouched", cur.Text)
	}
}

func TestScheduler_InterruptsStaleUtterance(t *testing.T) {
	tests := []struct {
		name          string
		gap           time.Duration
		wantInterrupt bool
	}{
		{"within gap", 1500 * time.Millisecond, false},
		{"exactly at gap", 2 * time.Second, false},
		{"after gap", 2500 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, f := newTestScheduler()
			s.Enqueue(utt("old", 0))
			first := f.last()

			s.Enqueue(utt("new", tt.gap))

			interrupted := first.ctx.Err() != nil
			if interrupted != tt.wantInterrupt {
				t.Fatalf("interrupted = %v, want %v", interrupted, tt.wantInterrupt)
			}
			if tt.wantInterrupt {
				if f.last().u.Text != "new" {
					t.Errorf("launched %q after interrupt, want %q", f.last().u.Text, "new")
				}
				if s.Complete(first.token, nil) {
					t.Error("stale completion asked for retry")
				}
				if cur, _ := s.Current(); cur.Text != "new" {
					t.Errorf("stale completion replaced current with %q", cur.Text)
				}
			} else if s.Len() != 1 {
				t.Errorf("Len() = %d, want 1", s.Len())
			}
		})
	}
}

func TestScheduler_ErrorHoldsUntilDrain(t *testing.T) {
	s, f := newTestScheduler()
	s.Enqueue(utt("a", 0))
	s.Enqueue(utt("b", 0))

	if !s.Complete(f.last().token, errors.New("synthesis failed")) {
		t.Fatal("failed completion did not ask for retry")
	}
	if s.State() != Idle {
		t.Fatalf("State() = %v after failure, want %v", s.State(), Idle)
	}
	if len(f.launches) != 1 {
		t.Fatalf("next utterance launched before Drain")
	}

	s.Enqueue(utt("c", 0))
	if len(f.launches) != 1 {
		t.Fatalf("enqueue during hold launched playback")
	}

	s.Drain()
	if f.last().u.Text != "b" {
		t.Errorf("Drain launched %q, want %q", f.last().u.Text, "b")
	}
	if got := s.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}

func TestScheduler_ForceStopFromSpeaking(t *testing.T) {
	for _, outcome := range []error{nil, errors.New("late failure")} {
		s, f := newTestScheduler()
		s.Enqueue(utt("a", 0))
		s.Enqueue(utt("b", 0))
		inflight := f.last()

		s.ForceStop()

		if s.State() != Idle || s.Len() != 0 {
			t.Fatalf("after ForceStop: state %v, len %d", s.State(), s.Len())
		}
		if inflight.ctx.Err() == nil {
			t.Error("in-flight playback not cancelled")
		}

		// The cancelled playback resolving later changes nothing.
		if s.Complete(inflight.token, outcome) {
			t.Error("late completion asked for retry")
		}
		if s.State() != Idle || s.Len() != 0 || len(f.launches) != 1 {
			t.Errorf("late completion (%v) changed state: %v, len %d, launches %d",
				outcome, s.State(), s.Len(), len(f.launches))
		}
	}
}

func TestScheduler_SingleInFlight(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s, f := newTestScheduler()
	clock := time.Duration(0)

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(10); {
		case op < 4:
			clock += time.Duration(rng.Intn(3000)) * time.Millisecond
			s.Enqueue(utt("u", clock))
		case op < 6:
			if l := f.last(); l != nil {
				var err error
				if rng.Intn(3) == 0 {
					err = errors.New("boom")
				}
				if l.token == s.token && s.State() == Speaking {
					l.done = true
				}
				s.Complete(l.token, err)
			}
		case op < 7:
			if len(f.launches) > 0 {
				stale := f.launches[rng.Intn(len(f.launches))]
				if stale.token != s.token {
					s.Complete(stale.token, nil)
				}
			}
		case op < 8:
			s.ForceStop()
		default:
			s.Drain()
		}

		active := f.active()
		if active > 1 {
			t.Fatalf("step %d: %d playbacks in flight", step, active)
		}
		if (s.State() == Speaking) != (active == 1) {
			t.Fatalf("step %d: state %v with %d active playbacks", step, s.State(), active)
		}
		if s.backlog() > s.opts.MaxBacklog+1 {
			t.Fatalf("step %d: backlog %d", step, s.backlog())
		}
	}
}
