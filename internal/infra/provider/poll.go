package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrPollExhausted is returned by Poll when the condition never became ready.
var ErrPollExhausted = errors.New("poll: condition not met")

// Poll calls check up to attempts times, sleeping interval between calls,
// until check reports done. An error from check stops polling immediately.
func Poll[T any](
	ctx context.Context,
	attempts int,
	interval time.Duration,
	check func(ctx context.Context) (T, bool, error),
) (T, error) {
	var result T
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}

	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, done, err := check(ctx)
		if err != nil {
			return err
		}
		if !done {
			return retry.RetryableError(ErrPollExhausted)
		}
		result = v
		return nil
	})
	return result, err
}
