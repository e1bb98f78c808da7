package store

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds every store call. Timeout applies per attempt;
// MaxRetries counts retries after the first attempt.
type RetryPolicy struct {
	Timeout    time.Duration
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type retrying struct {
	next   Client
	policy RetryPolicy
}

// WithRetry wraps c so transient failures are retried with exponential
// backoff. Non-transient errors are returned after the first attempt.
func WithRetry(c Client, p RetryPolicy) Client {
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	return &retrying{next: c, policy: p}
}

func (r *retrying) backoff() retry.Backoff {
	b := retry.NewExponential(r.policy.BaseDelay)
	if r.policy.MaxDelay > 0 {
		b = retry.WithCappedDuration(r.policy.MaxDelay, b)
	}
	return retry.WithMaxRetries(r.policy.MaxRetries, b)
}

func (r *retrying) do(ctx context.Context, call func(ctx context.Context) error) error {
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attemptCtx := ctx
		if r.policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
			defer cancel()
		}
		err := call(attemptCtx)
		if err != nil && ctx.Err() == nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *retrying) Insert(ctx context.Context, table string, row Row) (Row, error) {
	var out Row
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Insert(ctx, table, row)
		return err
	})
	return out, err
}

func (r *retrying) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	var out []Row
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Select(ctx, table, q)
		return err
	})
	return out, err
}

func (r *retrying) Update(ctx context.Context, table string, filters []Filter, patch Row) ([]Row, error) {
	var out []Row
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Update(ctx, table, filters, patch)
		return err
	})
	return out, err
}

func (r *retrying) Delete(ctx context.Context, table string, filters []Filter) ([]Row, error) {
	var out []Row
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Delete(ctx, table, filters)
		return err
	})
	return out, err
}
