package caption

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voicepal/voicepal/internal/history"
)

var logger = log.WithPrefix("caption")

// Snapshot is the caption text observed at one point in time.
type Snapshot struct {
	Text       string
	ObservedAt time.Time
}

// Utterance is one unit of text handed to a speech backend.
type Utterance struct {
	ID           string
	Text         string
	IsTranslated bool
	EnqueuedAt   time.Time
}

// Decision records what the processor did with a snapshot.
type Decision int

const (
	// Speak means a new utterance was produced.
	Speak Decision = iota
	// Rejected means the filter classified the snapshot as noise.
	Rejected
	// Unchanged means the snapshot repeats the last processed one.
	Unchanged
	// NoDelta means nothing new was found in the snapshot.
	NoDelta
	// Duplicate means the new text was spoken recently.
	Duplicate
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Speak:
		return "speak"
	case Rejected:
		return "rejected"
	case Unchanged:
		return "unchanged"
	case NoDelta:
		return "no delta"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Options tunes a Processor.
type Options struct {
	Filter          Filter
	Similarity      Similarity
	CadenceCapacity int
	SpokenCapacity  int
	// Translated tags every utterance as translated text.
	Translated bool
}

// DefaultOptions returns the default processor options.
func DefaultOptions() Options {
	return Options{
		Filter:          NewFilter(),
		Similarity:      NewSimilarity(),
		CadenceCapacity: history.CadenceCapacity,
		SpokenCapacity:  history.SpokenCapacity,
	}
}

// Processor chains the filter, delta extraction and duplicate suppression.
// It keeps the cadence and spoken histories and is owned by a single
// goroutine.
type Processor struct {
	opts          Options
	cadence       *history.Ring
	spoken        *history.Ring
	lastProcessed string
}

// NewProcessor creates a processor with empty histories.
func NewProcessor(opts Options) *Processor {
	return &Processor{
		opts:    opts,
		cadence: history.NewRing(opts.CadenceCapacity),
		spoken:  history.NewRing(opts.SpokenCapacity),
	}
}

// Process classifies a snapshot and returns the utterance to enqueue when the
// decision is Speak.
func (p *Processor) Process(s Snapshot) (Utterance, Decision) {
	v := p.opts.Filter.Classify(s.Text)
	if !v.OK() {
		logger.Debug("snapshot rejected", "reason", v.Reason, "text", v.Text)
		return Utterance{}, Rejected
	}
	if v.Text == p.lastProcessed {
		return Utterance{}, Unchanged
	}

	p.cadence.Push(history.Entry{Text: v.Text, At: s.ObservedAt})

	delta := ExtractDelta(v.Text, p.lastProcessed)
	p.lastProcessed = v.Text
	if delta == "" {
		logger.Debug("no new text in snapshot", "text", v.Text)
		return Utterance{}, NoDelta
	}

	if p.opts.Similarity.IsDuplicate(delta, p.spoken.Texts()) {
		logger.Debug("duplicate suppressed", "text", delta)
		return Utterance{}, Duplicate
	}

	return Utterance{
		ID:           uuid.NewString(),
		Text:         delta,
		IsTranslated: p.opts.Translated,
		EnqueuedAt:   s.ObservedAt,
	}, Speak
}

// MarkSpoken records text that has started playing.
func (p *Processor) MarkSpoken(text string, at time.Time) {
	p.spoken.Push(history.Entry{Text: text, At: at})
}

// Cadence returns the processed snapshots oldest first.
func (p *Processor) Cadence() []history.Entry {
	return p.cadence.Entries()
}

// Spoken returns the recently spoken texts oldest first.
func (p *Processor) Spoken() []string {
	return p.spoken.Texts()
}

// SetTranslated changes the translated tag applied to new utterances.
func (p *Processor) SetTranslated(translated bool) {
	p.opts.Translated = translated
}

// Reset forgets both histories and the last processed snapshot.
func (p *Processor) Reset() {
	p.cadence.Clear()
	p.spoken.Clear()
	p.lastProcessed = ""
}
