package submdomain

import "time"

type Stream string

const (
	StreamScored  Stream = "scored"
	StreamUpsolve Stream = "upsolve"
)

// Classify puts submissions created strictly before the freeze into the
// scored stream and the rest into upsolving. A zero freezeAt never freezes.
func Classify(freezeAt, createdAt time.Time) Stream {
	if freezeAt.IsZero() || createdAt.Before(freezeAt) {
		return StreamScored
	}
	return StreamUpsolve
}
