// Package history keeps the two bounded rings the caption pipeline consults:
// the cadence of recently processed snapshots and the text recently handed to
// a speech backend.
package history
