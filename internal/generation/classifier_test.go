package generation_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/songgen"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want generation.FailureClass
	}{
		{"validation error", &songgen.ValidationError{Message: "bad prompt"}, generation.FailureNonRetriable},
		{"wrapped validation error", fmt.Errorf("render: %w", &songgen.ValidationError{}), generation.FailureNonRetriable},
		{"rate limit", &songgen.RateLimitError{RetryAfter: time.Minute}, generation.FailureRateLimited},
		{"wrapped rate limit", fmt.Errorf("render: %w", &songgen.RateLimitError{}), generation.FailureRateLimited},
		{"plain error", errors.New("connection reset"), generation.FailureTransient},
		{"server error", fmt.Errorf("generation failed: status 503"), generation.FailureTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generation.Classify(tt.err))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	fallback := 60 * time.Second

	hinted := &songgen.RateLimitError{RetryAfter: 30 * time.Second}
	assert.Equal(t, 30*time.Second, generation.RetryDelay(hinted, fallback))

	unhinted := &songgen.RateLimitError{}
	assert.Equal(t, fallback, generation.RetryDelay(unhinted, fallback))

	assert.Equal(t, fallback, generation.RetryDelay(errors.New("other"), fallback))
}
