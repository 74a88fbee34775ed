package playback

// State is the scheduler's playback state.
type State int

const (
	// Idle means nothing is being spoken.
	Idle State = iota
	// Speaking means exactly one utterance is in flight.
	Speaking
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Stats counts scheduler events over a session.
type Stats struct {
	Enqueued    int64
	Started     int64
	Completed   int64
	Failed      int64
	Interrupted int64
	Dropped     int64 // cleared by backpressure or force-stop
}
