package history

import "time"

// Default ring capacities.
const (
	CadenceCapacity = 10
	SpokenCapacity  = 5
)

// Entry is one remembered caption or utterance.
type Entry struct {
	Text string
	At   time.Time
}

// Ring is a fixed-capacity buffer that evicts its oldest entry on overflow.
// It is not safe for concurrent use; the session loop owns it.
type Ring struct {
	buf   []Entry
	start int
	count int
}

// NewRing creates a ring holding at most capacity entries.
// A non-positive capacity is treated as 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity)}
}

// Push appends an entry, dropping the oldest when full.
func (r *Ring) Push(e Entry) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// Entries returns the entries oldest first.
func (r *Ring) Entries() []Entry {
	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Texts returns the entry texts oldest first.
func (r *Ring) Texts() []string {
	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)].Text
	}
	return out
}

// Last returns the newest entry.
func (r *Ring) Last() (Entry, bool) {
	if r.count == 0 {
		return Entry{}, false
	}
	return r.buf[(r.start+r.count-1)%len(r.buf)], true
}

// Len returns the number of stored entries.
func (r *Ring) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Clear forgets every entry.
func (r *Ring) Clear() {
	for i := range r.buf {
		r.buf[i] = Entry{}
	}
	r.start, r.count = 0, 0
}
