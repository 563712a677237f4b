// ABOUTME: Pure reconnect decision: given the attempt count, the cap, and run liveness,
// ABOUTME: decide retry-or-give-up and the delay before the next connection attempt.
package stream

import "time"

const (
	// DefaultMaxAttempts caps consecutive failed connection attempts before
	// a subscription goes permanently disconnected.
	DefaultMaxAttempts = 5

	// DefaultRetryDelay is the fixed wait before each reconnect. Deliberately
	// not exponential and not jittered: a dashboard watches a handful of
	// streams against its own backend, not a fleet against a shared one.
	DefaultRetryDelay = 3 * time.Second
)

// Decision is the outcome of a reconnect policy evaluation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// PolicyFunc decides whether a dropped connection is retried. attempts is
// the number of consecutive failures so far, including the one just
// observed.
type PolicyFunc func(attempts, maxAttempts int, runActive bool) Decision

// FixedDelay is the default policy: retry after DefaultRetryDelay while the
// run is still active and the attempt budget is not exhausted. Once the run
// reaches a terminal state, no reconnect is scheduled even if budget
// remains.
func FixedDelay(attempts, maxAttempts int, runActive bool) Decision {
	if !runActive || attempts >= maxAttempts {
		return Decision{}
	}
	return Decision{Retry: true, Delay: DefaultRetryDelay}
}
