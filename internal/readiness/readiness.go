// Package readiness waits for an external dependency before the migration
// starts writing.
package readiness

import (
	"context"
	"time"

	"github.com/catalogtools/pimasset/pkg/logger"
	"github.com/cenkalti/backoff/v4"
)

// Probe reports whether a dependency is ready to serve.
type Probe func(ctx context.Context) error

// Wait runs probe, retries it once after delay, and then proceeds even if the
// dependency never became ready. Only context cancellation stops the caller.
func Wait(ctx context.Context, probe Probe, delay time.Duration, logg *logger.Logger) error {
	if probe == nil {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), 1), ctx)

	notify := func(err error, next time.Duration) {
		if logg == nil {
			return
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"error":    err.Error(),
			"retry_in": next.String(),
		}), "dependency not ready, retrying once")
	}

	err := backoff.RetryNotify(func() error { return probe(ctx) }, bo, notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if logg != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "dependency still not ready, proceeding")
	}
	return nil
}
