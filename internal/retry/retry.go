// Package retry runs an operation under a bounded backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int           // total attempts, at least 1
	Delay       time.Duration // delay before the second attempt
	Multiplier  float64       // 1.0 keeps the delay fixed
	MaxDelay    time.Duration // cap for a growing delay, 0 = uncapped
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay, Multiplier: 1}
}

// Validate reports a policy that cannot be executed.
func (p Policy) Validate() error {
	if p.Delay < 0 {
		return errors.New("retry: delay cannot be negative")
	}
	if p.MaxDelay < 0 {
		return errors.New("retry: max delay cannot be negative")
	}
	if p.Multiplier < 0 {
		return errors.New("retry: multiplier cannot be negative")
	}
	return nil
}

// BackOff returns the delay schedule of p without jitter: constant when the
// multiplier is at most 1, exponential up to MaxDelay otherwise.
func (p Policy) BackOff() backoff.BackOff {
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(p.Delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.RandomizationFactor = 0
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval == 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.Reset()
	return b
}

func (p Policy) attempts() int {
	return max(p.MaxAttempts, 1)
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is done.
// onFailure, when non-nil, observes every failed attempt.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, onFailure func(attempt int, err error)) error {
	if err := p.Validate(); err != nil {
		return err
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err != nil && onFailure != nil {
			onFailure(attempt, err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(uint(p.attempts())),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, err)
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
}
