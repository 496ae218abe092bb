// Package queue implements the encrypted offline event queue and its plaintext fallback.
//
// None of the operations return an error. Failures are folded into a fallback
// action and reported through the Path and Cause fields of the result, so a
// capture flow is never interrupted by storage or crypto trouble.
package queue

import (
	"github.com/and161185/capture-queue/internal/model"
)

// Path tells which queue served an operation.
type Path int

const (
	// PathSecure: the encrypted queue handled the operation.
	PathSecure Path = iota + 1
	// PathPlain: the plaintext fallback queue handled the operation.
	PathPlain
	// PathDropped: neither queue could store the event.
	PathDropped
)

func (p Path) String() string {
	switch p {
	case PathSecure:
		return "secure"
	case PathPlain:
		return "plain"
	case PathDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// EnqueueResult describes where an event ended up.
type EnqueueResult struct {
	Path Path
	// Cause explains a degradation. It is informational and nil on the healthy path.
	Cause error
}

// Stored reports whether the event was persisted by either queue.
func (r EnqueueResult) Stored() bool { return r.Path == PathSecure || r.Path == PathPlain }

// ReadResult carries the events returned by a drain or peek, in insertion order.
// Events is never nil.
type ReadResult struct {
	Events []model.CaptureEvent
	Path   Path
	Cause  error
}
