package workflow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songcraft-backend/internal/workflow"
)

func noSleep(engine *workflow.Engine, slept *[]time.Duration) *workflow.Engine {
	return engine.WithSleep(func(d time.Duration) {
		if slept != nil {
			*slept = append(*slept, d)
		}
	})
}

func TestEngine_SucceedsAfterTransientFailures(t *testing.T) {
	engine := noSleep(workflow.NewEngine(4), nil)

	callCount := 0
	attempts, err := engine.Run(func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, callCount)
}

func TestEngine_ExhaustsBudget(t *testing.T) {
	var slept []time.Duration
	engine := noSleep(workflow.NewEngine(4), &slept)

	attempts, err := engine.Run(func() error {
		return errors.New("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Contains(t, err.Error(), "failed after 4 attempts")
	// Exponential backoff between attempts, none after the last.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestEngine_NonRetriableStopsImmediately(t *testing.T) {
	engine := noSleep(workflow.NewEngine(4), nil)

	callCount := 0
	attempts, err := engine.Run(func() error {
		callCount++
		return workflow.NonRetriable(errors.New("bad input"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, callCount)
	var nonRetriable *workflow.NonRetriableError
	assert.ErrorAs(t, err, &nonRetriable)
}

func TestEngine_RetryAfterOverridesBackoff(t *testing.T) {
	var slept []time.Duration
	engine := noSleep(workflow.NewEngine(3), &slept)

	callCount := 0
	attempts, err := engine.Run(func() error {
		callCount++
		if callCount == 1 {
			return workflow.RetryAfter(45*time.Second, errors.New("rate limited"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{45 * time.Second}, slept)
}

func TestEngine_ErrorWrappingSurvivesExhaustion(t *testing.T) {
	engine := noSleep(workflow.NewEngine(2), nil)

	cause := errors.New("root cause")
	_, err := engine.Run(func() error {
		return workflow.RetryAfter(time.Second, cause)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
