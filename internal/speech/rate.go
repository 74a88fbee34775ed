package speech

import (
	"unicode/utf8"

	"github.com/voicepal/voicepal/internal/history"
)

// Rate bounds.
const (
	DefaultRate = 1.5
	MinRate     = 1.0
	MaxRate     = 2.0
)

// Weight of the previous rate when smoothing toward a new target.
const rateSmoothing = 0.7

// TargetRate buckets caption cadence into a speech rate. Faster turnover and
// longer captions call for faster narration.
func TargetRate(meanIntervalMs, meanLength float64) float64 {
	switch {
	case meanIntervalMs < 2000:
		if meanLength > 20 {
			return 1.6
		}
		return 1.4
	case meanIntervalMs < 4000:
		if meanLength > 20 {
			return 1.4
		}
		return 1.3
	default:
		if meanLength > 30 {
			return 1.3
		}
		return 1.2
	}
}

// ComputeRate derives the next speech rate from the caption cadence history
// (oldest first) and the previous rate. The result is always within
// [MinRate, MaxRate].
func ComputeRate(cadence []history.Entry, previous float64) float64 {
	if len(cadence) < 2 {
		return DefaultRate
	}

	span := cadence[len(cadence)-1].At.Sub(cadence[0].At)
	meanInterval := float64(span.Milliseconds()) / float64(len(cadence)-1)

	var runes int
	for _, e := range cadence {
		runes += utf8.RuneCountInString(e.Text)
	}
	meanLength := float64(runes) / float64(len(cadence))

	target := TargetRate(meanInterval, meanLength)
	return clampRate(previous*rateSmoothing + target*(1-rateSmoothing))
}

func clampRate(r float64) float64 {
	if r < MinRate {
		return MinRate
	}
	if r > MaxRate {
		return MaxRate
	}
	return r
}

// RateController remembers the rate used for the previous utterance.
type RateController struct {
	previous float64
}

// NewRateController starts at DefaultRate.
func NewRateController() *RateController {
	return &RateController{previous: DefaultRate}
}

// Next computes and remembers the rate for the next utterance.
func (c *RateController) Next(cadence []history.Entry) float64 {
	c.previous = ComputeRate(cadence, c.previous)
	return c.previous
}

// Current returns the last computed rate.
func (c *RateController) Current() float64 { return c.previous }

// Reset returns to DefaultRate.
func (c *RateController) Reset() { c.previous = DefaultRate }
