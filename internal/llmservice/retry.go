package llmservice

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// IsRateLimit reports whether err looks like a rate/quota rejection from the
// provider. Providers surface these inconsistently, so this matches on the
// usual markers in the error text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted")
}

// RetryPolicy retries an external call after a fixed cooldown, but only when
// the failure is a rate limit. Any other error returns immediately.
type RetryPolicy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// Do runs fn up to MaxAttempts times. The final error, rate-limited or not,
// is returned as-is.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsRateLimit(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		log.Warn().Err(err).Dur("cooldown", p.Cooldown).Msg("rate limited, cooling down before retry")
		select {
		case <-time.After(p.Cooldown):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
