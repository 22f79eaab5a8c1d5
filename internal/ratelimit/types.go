package ratelimit

import (
	"fmt"
	"time"
)

// Stats is a read-only snapshot of a bucket's usage. It is derived state,
// recomputed on demand for status display.
type Stats struct {
	RequestsMade    int64         // total Acquire/TryAcquire calls
	RequestsLimited int64         // calls that found the bucket short
	TotalWait       time.Duration // cumulative time spent waiting for credit
	AverageWait     time.Duration // TotalWait / RequestsLimited
	Tokens          float64       // stored credits right now
	Waiters         int           // callers currently sleeping for credit
}

// RateLimitError reports that a non-blocking acquire found insufficient
// credit. Wait is how long a blocking caller would have slept.
type RateLimitError struct {
	Service string
	Wait    time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit reached, would need to wait %.2fs", e.Service, e.Wait.Seconds())
}
