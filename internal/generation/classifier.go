package generation

import (
	"errors"
	"time"

	"songcraft-backend/internal/songgen"
)

// FailureClass is the three-way split applied to provider errors.
type FailureClass int

const (
	// FailureTransient covers network errors, 5xx and timeouts; retrying
	// under normal backoff may succeed.
	FailureTransient FailureClass = iota
	// FailureNonRetriable covers validation errors; retrying the same
	// request cannot succeed, so the variant fails permanently without
	// consuming retry budget.
	FailureNonRetriable
	// FailureRateLimited means the provider asked us to back off before the
	// next attempt.
	FailureRateLimited
)

// Classify decides the failure class from the typed errors the provider
// client returns. The class is never re-derived from message text.
func Classify(err error) FailureClass {
	var validation *songgen.ValidationError
	if errors.As(err, &validation) {
		return FailureNonRetriable
	}
	var rateLimit *songgen.RateLimitError
	if errors.As(err, &rateLimit) {
		return FailureRateLimited
	}
	return FailureTransient
}

// RetryDelay returns the provider's retry-after hint for a rate-limit error,
// or fallback when the provider gave none.
func RetryDelay(err error, fallback time.Duration) time.Duration {
	var rateLimit *songgen.RateLimitError
	if errors.As(err, &rateLimit) && rateLimit.RetryAfter > 0 {
		return rateLimit.RetryAfter
	}
	return fallback
}
