package gateway

import (
	"math/rand"
	"time"
)

// BackoffPolicy describes the retry schedule for gateway calls: capped
// linear-exponential delay plus random jitter. Rand is injectable so the
// schedule is testable without sleeping.
type BackoffPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	JitterMax   time.Duration
	MaxAttempts int
	Rand        func() float64
}

// DefaultPolicy returns the production retry schedule: three attempts,
// 2s/4s base delays capped at 5s, up to 1s jitter.
func DefaultPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:        2 * time.Second,
		Cap:         5 * time.Second,
		JitterMax:   1 * time.Second,
		MaxAttempts: 3,
	}
}

// Delay returns the wait before the given attempt fires. Attempt 1 is
// immediate; attempt n waits min((n-1)*Base, Cap) plus jitter.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := time.Duration(attempt-1) * p.Base
	if d > p.Cap {
		d = p.Cap
	}
	if p.JitterMax > 0 {
		r := p.Rand
		if r == nil {
			r = rand.Float64
		}
		d += time.Duration(r() * float64(p.JitterMax))
	}
	return d
}
