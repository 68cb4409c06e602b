package gateway

import (
	"sync"
	"time"
)

// slowThreshold marks an attempt as slow for health accounting.
const slowThreshold = 10 * time.Second

// unhealthyStreak is the consecutive-failure count at which the gateway is
// reported unhealthy.
const unhealthyStreak = 3

// HealthSnapshot is a point-in-time copy of the tracker counters.
type HealthSnapshot struct {
	TotalRequests       int64     `json:"total_requests"`
	Failures            int64     `json:"failures"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	SlowRequests        int64     `json:"slow_requests"`
	TotalElapsedMS      int64     `json:"total_elapsed_ms"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	Healthy             bool      `json:"healthy"`
}

// HealthTracker accumulates rolling request/failure counters for the gateway.
// One instance is shared by all requests in a process; counters accumulate
// for the process lifetime unless Reset is called by an operator.
type HealthTracker struct {
	mu                  sync.Mutex
	totalRequests       int64
	failures            int64
	consecutiveFailures int64
	slowRequests        int64
	totalElapsed        time.Duration
	lastFailure         time.Time
}

// NewHealthTracker creates an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{}
}

// Record accounts one attempt, success or failure.
func (t *HealthTracker) Record(elapsed time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests++
	t.totalElapsed += elapsed
	if elapsed > slowThreshold {
		t.slowRequests++
	}
	if failed {
		t.failures++
		t.consecutiveFailures++
		t.lastFailure = time.Now().UTC()
	} else {
		t.consecutiveFailures = 0
	}
}

// Healthy reports whether the consecutive-failure streak is under the limit.
func (t *HealthTracker) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveFailures < unhealthyStreak
}

// Snapshot returns a copy of the current counters.
func (t *HealthTracker) Snapshot() HealthSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthSnapshot{
		TotalRequests:       t.totalRequests,
		Failures:            t.failures,
		ConsecutiveFailures: t.consecutiveFailures,
		SlowRequests:        t.slowRequests,
		TotalElapsedMS:      t.totalElapsed.Milliseconds(),
		LastFailure:         t.lastFailure,
		Healthy:             t.consecutiveFailures < unhealthyStreak,
	}
}

// Reset zeroes all counters. Operator action only.
func (t *HealthTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalRequests = 0
	t.failures = 0
	t.consecutiveFailures = 0
	t.slowRequests = 0
	t.totalElapsed = 0
	t.lastFailure = time.Time{}
}
