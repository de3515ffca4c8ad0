package llmservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"HTTP429", errors.New("API returned unexpected status code: 429"), true},
		{"RateLimitText", errors.New("Rate Limit exceeded, slow down"), true},
		{"Quota", errors.New("insufficient quota for this request"), true},
		{"ResourceExhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"Unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimit(tt.err))
		})
	}
}

func TestRetryPolicy_NonRateLimitFailsImmediately(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 2}
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("connection refused")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RateLimitRetriedOnce(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 2}
	err := p.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return errors.New("429 too many requests")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_RateLimitExhausted(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 2}
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("429 too many requests")
	})
	assert.Error(t, err)
	assert.True(t, IsRateLimit(err))
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_Success(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 2}
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelledDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 2, Cooldown: 10 * time.Second} // cancelled ctx wins over the cooldown
	err := p.Do(ctx, func() error {
		return errors.New("429 too many requests")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
