package resilience

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxAttempts    int           // Maximum number of attempts (including the first)
	InitialBackoff time.Duration // Backoff before the second attempt
	MaxBackoff     time.Duration // Cap on the backoff duration
	Multiplier     float64       // Exponential growth factor
	Jitter         bool          // Add up to 25% random jitter to each backoff
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// IsRetryableError reports whether an error is worth retrying
type IsRetryableError func(error) bool

// Retry executes fn until it succeeds, the attempt budget is exhausted, or a
// non-retryable error occurs. A nil isRetryable treats every error as retryable.
func Retry(fn RetryableFunc, config *RetryConfig, isRetryable IsRetryableError) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxAttempts-1 {
			time.Sleep(backoffFor(attempt, config))
		}
	}

	return lastErr
}

func backoffFor(attempt int, config *RetryConfig) time.Duration {
	backoff := time.Duration(float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt)))
	if backoff > config.MaxBackoff {
		backoff = config.MaxBackoff
	}
	if config.Jitter {
		backoff += time.Duration(rand.Float64() * 0.25 * float64(backoff))
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
	return backoff
}

// IsRetryableNetworkError reports whether an error looks like a transient
// network failure (connection drops, timeouts, resource exhaustion)
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"transport is closing",
		"unavailable",
		"network is unreachable",
		"no route to host",
		"deadline exceeded",
		"timeout",
		"i/o timeout",
		"resource exhausted",
		"too many connections",
		"rate limit",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
