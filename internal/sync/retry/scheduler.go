package retry

import (
	"time"
)

const backoffBase = time.Second

// Scheduler computes backoff delays and enforces the cumulative retry
// budget per document.
type Scheduler struct {
	maxRetries int
	cap        time.Duration
	now        func() time.Time
}

// NewScheduler constructs a scheduler. maxRetries is the cumulative failure
// count after which a document goes to permanent error; cap bounds the
// exponential backoff wait.
func NewScheduler(maxRetries int, cap time.Duration) *Scheduler {
	return &Scheduler{maxRetries: maxRetries, cap: cap, now: time.Now}
}

// Backoff returns the wait before the attempt following retryCount failures:
// 2^retryCount seconds, bounded by the cap.
func (s *Scheduler) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// 2^retryCount seconds overflows long before the shift does; bail to
	// the cap once the exponent can no longer matter.
	if retryCount > 30 {
		return s.cap
	}
	wait := backoffBase << uint(retryCount)
	if wait > s.cap {
		return s.cap
	}
	return wait
}

// NextEligible returns the time the operation may be attempted again after
// its retryCount-th failure.
func (s *Scheduler) NextEligible(retryCount int) time.Time {
	return s.now().UTC().Add(s.Backoff(retryCount))
}

// Exhausted reports whether retryCount failures have used up the budget.
// Once exhausted the document is marked permanently errored and leaves
// automatic retry; only explicit caller action clears it.
func (s *Scheduler) Exhausted(retryCount int) bool {
	return retryCount >= s.maxRetries
}
