// Package retry defines the retry policy applied at collaborator
// boundaries. The core pipeline itself never retries; policies live only
// where external services are called.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy constants.
const (
	defaultMaxAttempts     = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

// Policy describes how many attempts an operation gets and how the delay
// between them grows.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the standard collaborator policy: three attempts
// with exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     defaultMaxAttempts,
		InitialInterval: defaultInitialInterval,
		MaxInterval:     defaultMaxInterval,
	}
}

// Do runs op under the policy, honoring ctx between attempts. onRetry,
// when set, fires before each re-attempt with the error that caused it.
func Do(ctx context.Context, p Policy, op func() error, onRetry func(err error)) error {
	if p.MaxAttempts == 0 {
		p = DefaultPolicy()
	}

	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}

	b := backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxAttempts-1), ctx)

	notify := func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(err)
		}
	}

	return backoff.RetryNotify(op, b, notify)
}
