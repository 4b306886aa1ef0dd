package songgen

import (
	"fmt"
	"time"
)

// ValidationError means the provider rejected the request itself. Retrying
// the same payload cannot succeed.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider rejected request: %s", e.Message)
}

// RateLimitError means the provider asked us to back off. RetryAfter is the
// provider's hint; zero when none was supplied.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
	}
	return "provider rate limited"
}
