// Package backoff computes the delay schedule for websocket reconnection
// attempts. The policy is a pure calculator: the attempt counter is owned by
// the caller, and the policy itself carries no connection state.
package backoff

import "time"

// Default values applied by NewPolicy.
const (
	DefaultBase        = time.Second
	DefaultMaxAttempts = 5
)

// Policy describes a pure exponential backoff schedule without jitter.
// Randomized jitter is a possible future refinement; the current behavior is
// deterministic so reconnect timing stays predictable in tests.
type Policy struct {
	// Base is the delay before the first reconnection attempt. Each
	// subsequent attempt doubles it.
	Base time.Duration

	// MaxAttempts is the number of reconnection attempts allowed before the
	// caller must give up. NextDelay is never consulted beyond this bound.
	MaxAttempts int
}

// NewPolicy returns a policy with the default schedule: 1s base delay,
// doubling per attempt, giving up after 5 attempts.
func NewPolicy() Policy {
	return Policy{
		Base:        DefaultBase,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// NextDelay returns the delay to wait before reconnection attempt n, where
// attempts are numbered from 1: Base * 2^(n-1). Attempts outside
// [1, MaxAttempts] must not be scheduled; callers check Exhausted first.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.Base << (attempt - 1)
}

// Exhausted reports whether the given attempt number is past the attempt
// budget and the caller should abandon reconnection with a terminal failure.
func (p Policy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}
