package upstream

import (
	"context"
	"math"
	"math/rand"
	"time"

	"agent-gateway/internal/shared"
)

// RetryConfig bounds the retry loop in Client.Complete. Attempts counts
// total tries, so Attempts == 1 disables retry entirely.
type RetryConfig struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// Retryable reports whether a classified upstream failure is worth another
// attempt. Only transient failures qualify: rejections and malformed
// responses would fail identically on every try.
func Retryable(err error) bool {
	kind, ok := shared.KindOf(err)
	if !ok {
		return false
	}
	return kind == shared.KindUpstreamUnavailable || kind == shared.KindUpstreamServerError
}

// BackoffFor returns the delay before the given attempt (attempt 1 is the
// first retry), exponential with 10% jitter, capped at MaxBackoff.
func (c RetryConfig) BackoffFor(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if capped := float64(c.MaxBackoff); backoff > capped {
		backoff = capped
	}
	jitter := backoff * 0.1 * rand.Float64()
	return time.Duration(backoff + jitter)
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
