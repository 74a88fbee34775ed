// Package playback schedules utterances onto a single speech channel.
//
// The Scheduler is a two-state machine (Idle, Speaking) over a FIFO queue.
// It starts at most one playback at a time through a Launcher, interrupts a
// stale utterance when a clearly newer caption arrives, and clears the queue
// when narration falls too far behind. It is not safe for concurrent use:
// a single event loop drives every method, including completion reports
// coming back from playback goroutines.
package playback
