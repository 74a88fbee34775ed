// Package ducking lowers the volume of the page's videos while narration
// plays and restores it afterwards.
package ducking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

var logger = log.WithPrefix("ducking")

// Defaults for the ducked volume: max(DefaultFloor, original*DefaultRatio).
const (
	DefaultFloor = 0.3
	DefaultRatio = 0.3
)

// Video is one video element on the page.
type Video struct {
	ID     string  `json:"id"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted,omitempty"`
}

// VideoHost reads and writes video volumes.
type VideoHost interface {
	Videos(ctx context.Context) ([]Video, error)
	SetVolume(ctx context.Context, id string, volume float64) error
}

// Controller ducks every video the host reports. Each video's original
// volume is recorded once, so ducking twice never records a ducked value.
type Controller struct {
	host  VideoHost
	floor float64
	ratio float64

	mu        sync.Mutex
	originals map[string]float64
	holders   int
	gen       uint64
}

// New creates a controller. A nil host makes Duck and Restore no-ops.
func New(host VideoHost, floor, ratio float64) *Controller {
	return &Controller{
		host:      host,
		floor:     floor,
		ratio:     ratio,
		originals: make(map[string]float64),
	}
}

// Target returns the ducked volume max(floor, original*ratio), capped at
// original so a video already quieter than the floor is never raised.
func (c *Controller) Target(original float64) float64 {
	v := max(c.floor, original*c.ratio)
	return min(v, original)
}

// Duck lowers every unmuted video; muted videos are left untouched so a
// restore cannot unmute them. Failures on one video do not stop the others.
func (c *Controller) Duck(ctx context.Context) error {
	if c.host == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duck(ctx)
}

func (c *Controller) duck(ctx context.Context) error {
	videos, err := c.host.Videos(ctx)
	if err != nil {
		return fmt.Errorf("failed to list videos: %w", err)
	}

	var errs []error
	for _, v := range videos {
		if v.Muted {
			continue
		}
		original, seen := c.originals[v.ID]
		if !seen {
			original = v.Volume
		}
		target := c.Target(original)
		if err := c.host.SetVolume(ctx, v.ID, target); err != nil {
			errs = append(errs, fmt.Errorf("video %s: %w", v.ID, err))
			continue
		}
		if !seen {
			c.originals[v.ID] = original
		}
		logger.Debug("ducked", "video", v.ID, "from", original, "to", target)
	}
	return errors.Join(errs...)
}

// Restore writes back every recorded original volume and forgets it. It is
// safe to call any number of times. Outstanding leases become no-ops.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holders = 0
	c.gen++
	if c.host == nil {
		return nil
	}
	return c.restore(ctx)
}

func (c *Controller) restore(ctx context.Context) error {
	var errs []error
	for id, original := range c.originals {
		if err := c.host.SetVolume(ctx, id, original); err != nil {
			errs = append(errs, fmt.Errorf("video %s: %w", id, err))
		} else {
			logger.Debug("restored", "video", id, "volume", original)
		}
		delete(c.originals, id)
	}
	return errors.Join(errs...)
}

// Ducked returns the number of videos currently ducked.
func (c *Controller) Ducked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.originals)
}

// Lease is one playback's hold on the ducked volume. Volumes are restored
// when the last lease is released.
type Lease struct {
	c    *Controller
	gen  uint64
	once sync.Once
}

// Acquire ducks the videos and returns a lease for the caller to release
// when playback ends. The lease is valid even when ducking failed.
func (c *Controller) Acquire(ctx context.Context) (*Lease, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.holders++
	l := &Lease{c: c, gen: c.gen}
	if c.host == nil {
		return l, nil
	}
	return l, c.duck(ctx)
}

// Release drops the lease. Releasing twice, or after Restore, does nothing.
func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		c := l.c
		c.mu.Lock()
		defer c.mu.Unlock()

		if l.gen != c.gen || c.holders == 0 {
			return
		}
		c.holders--
		if c.holders == 0 && c.host != nil {
			err = c.restore(ctx)
		}
	})
	return err
}
