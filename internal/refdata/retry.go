package refdata

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// retryDo runs fn up to attempts times with exponential backoff and jitter.
// Context cancellation stops retries immediately. Reloads are infrequent,
// so the backoff leans patient rather than aggressive.
func retryDo[T any](ctx context.Context, attempts int, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if attempt >= attempts-1 {
			break
		}

		zap.L().Warn("refdata: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		delay := time.Duration(float64(500*time.Millisecond) * math.Pow(2, float64(attempt)))
		if delay > 15*time.Second {
			delay = 15 * time.Second
		}
		delay += time.Duration(rand.Int64N(int64(delay) / 2))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}
