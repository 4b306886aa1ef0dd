// Package workflow is a small retry engine standing in for a durable
// workflow runtime: bounded attempts, exponential backoff, a non-retriable
// error signal and a retry-after-delay signal.
package workflow

import (
	"errors"
	"fmt"
	"time"
)

// NonRetriableError aborts the run immediately without consuming the
// remaining attempts.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return fmt.Sprintf("non-retriable: %v", e.Err)
}

func (e *NonRetriableError) Unwrap() error { return e.Err }

// NonRetriable wraps err so the engine stops retrying.
func NonRetriable(err error) error {
	return &NonRetriableError{Err: err}
}

// RetryAfterError asks the engine to wait the given delay before the next
// attempt instead of the normal backoff.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// RetryAfter wraps err with an explicit delay before the next attempt.
func RetryAfter(after time.Duration, err error) error {
	return &RetryAfterError{After: after, Err: err}
}

type Engine struct {
	maxAttempts int
	backoffs    []time.Duration
	sleep       func(time.Duration)
}

func NewEngine(maxAttempts int) *Engine {
	return &Engine{
		maxAttempts: maxAttempts,
		backoffs:    []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second},
		sleep:       time.Sleep,
	}
}

// WithSleep replaces the sleep function; tests use this to avoid real delays.
func (e *Engine) WithSleep(sleep func(time.Duration)) *Engine {
	e.sleep = sleep
	return e
}

// Run invokes op until it succeeds, returns a non-retriable error, or the
// attempt budget is exhausted. It returns the number of attempts made along
// with the final error, so a failure hook can record the retry count.
func (e *Engine) Run(op func() error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return attempt, nil
		}

		var nonRetriable *NonRetriableError
		if errors.As(err, &nonRetriable) {
			return attempt, err
		}

		lastErr = err
		if attempt == e.maxAttempts {
			break
		}

		var retryAfter *RetryAfterError
		if errors.As(err, &retryAfter) && retryAfter.After > 0 {
			e.sleep(retryAfter.After)
			continue
		}
		e.sleep(e.backoff(attempt - 1))
	}

	return e.maxAttempts, fmt.Errorf("failed after %d attempts: %w", e.maxAttempts, lastErr)
}

func (e *Engine) backoff(i int) time.Duration {
	if i < len(e.backoffs) {
		return e.backoffs[i]
	}
	return e.backoffs[len(e.backoffs)-1]
}
