package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// PublishPolicy is used for best-effort broker writes that must not hold a request for long.
func PublishPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second, Jitter: 0.2},
		Retryable: Transient,
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Debug("publish retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Warn("publish retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
