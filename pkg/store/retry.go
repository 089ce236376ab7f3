package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
)

// RetryConfig controls the exponential backoff applied to store reads.
type RetryConfig struct {
	// InitialDelay is the first retry delay.
	InitialDelay time.Duration

	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration

	// MaxElapsed bounds the total time spent retrying a single call.
	// Once exceeded, the last error is returned to the caller.
	MaxElapsed time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		MaxElapsed:   15 * time.Second,
	}
}

// Retrier wraps a Driver and retries read operations with exponential
// backoff. Writes (Insert, SoftDelete) pass through untouched: a failed
// insert is surfaced to the caller, never replayed.
type Retrier struct {
	inner  Driver
	config RetryConfig
	logger *zap.Logger
}

// WithRetry wraps the given driver's read paths in backoff retry.
func WithRetry(inner Driver, config RetryConfig, logger *zap.Logger) *Retrier {
	if config.InitialDelay <= 0 {
		config = DefaultRetryConfig()
	}

	return &Retrier{
		inner:  inner,
		config: config,
		logger: logger,
	}
}

func (r *Retrier) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.MaxElapsedTime = r.config.MaxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := fn(); err != nil {
			r.logger.Warn("store read failed, backing off",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))

	return err
}

// FetchBatch retries the inner fetch with backoff.
func (r *Retrier) FetchBatch(ctx context.Context, cursor int64, limit int, dir Direction, maxID int64) ([]*message.Message, error) {
	var msgs []*message.Message
	err := r.retry(ctx, "fetch_batch", func() error {
		var err error
		msgs, err = r.inner.FetchBatch(ctx, cursor, limit, dir, maxID)
		return err
	})
	return msgs, err
}

// FetchNewAbove retries the inner fetch with backoff.
func (r *Retrier) FetchNewAbove(ctx context.Context, watermark int64) ([]*message.Message, error) {
	var msgs []*message.Message
	err := r.retry(ctx, "fetch_new_above", func() error {
		var err error
		msgs, err = r.inner.FetchNewAbove(ctx, watermark)
		return err
	})
	return msgs, err
}

// MaxID retries the inner lookup with backoff.
func (r *Retrier) MaxID(ctx context.Context) (int64, error) {
	var max int64
	err := r.retry(ctx, "max_id", func() error {
		var err error
		max, err = r.inner.MaxID(ctx)
		return err
	})
	return max, err
}

// Count retries the inner count with backoff.
func (r *Retrier) Count(ctx context.Context) (int, error) {
	var n int
	err := r.retry(ctx, "count", func() error {
		var err error
		n, err = r.inner.Count(ctx)
		return err
	})
	return n, err
}

// Insert passes through without retry.
func (r *Retrier) Insert(ctx context.Context, m *message.Message) (*message.Message, error) {
	return r.inner.Insert(ctx, m)
}

// SoftDelete passes through without retry.
func (r *Retrier) SoftDelete(ctx context.Context, id int64) error {
	return r.inner.SoftDelete(ctx, id)
}

// Ping passes through without retry.
func (r *Retrier) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

// Close closes the inner driver.
func (r *Retrier) Close() error {
	return r.inner.Close()
}
