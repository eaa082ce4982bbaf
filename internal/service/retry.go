package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// RetryPolicy declares how an operation retries: how many attempts, what
// backoff, and which error kinds are worth retrying. Everything else
// fails on the first attempt.
type RetryPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Retryable   []domain.Kind
}

// BeliefUpdatePolicy covers optimistic belief updates: three attempts,
// retrying only on version conflicts.
func BeliefUpdatePolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    3,
		BaseBackoff: 25 * time.Millisecond,
		MaxBackoff:  250 * time.Millisecond,
		Retryable:   []domain.Kind{domain.KindConflict},
	}
}

func (p RetryPolicy) retryable(err error) bool {
	kind := domain.KindOf(err)
	for _, k := range p.Retryable {
		if k == kind {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds, exhausts attempts, or hits a
// non-retryable error. Backoff doubles per attempt with full jitter.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := p.BaseBackoff << (attempt - 1)
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
			if backoff > 0 {
				backoff = time.Duration(rand.Int63n(int64(backoff))) + 1
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = fn(ctx)
		if err == nil || !p.retryable(err) {
			return err
		}
	}
	return err
}
