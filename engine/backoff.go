package engine

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before a task becomes eligible again
// after a retryable failure.
type BackoffStrategy interface {
	// NextDelay calculates the delay before the next retry attempt.
	NextDelay(retryCount int) time.Duration
}

// ExponentialBackoff doubles the delay on every retry up to a cap.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NewExponentialBackoff creates an exponential backoff strategy with the
// given base delay and cap.
func NewExponentialBackoff(base, max time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  base,
		MaxDelay:   max,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the exponential backoff delay.
func (eb *ExponentialBackoff) NextDelay(retryCount int) time.Duration {
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(retryCount))
	delayDuration := time.Duration(delay)

	if delayDuration > eb.MaxDelay {
		return eb.MaxDelay
	}
	return delayDuration
}
