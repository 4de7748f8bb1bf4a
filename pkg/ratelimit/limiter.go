// Package ratelimit paces outbound requests to the chat backend. It wraps
// Uber's token bucket limiter behind a small interface so the REST client can
// respect the backend's request budget without binding to a concrete
// implementation.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
)

// Rate is a rate limit expressed as a number of operations per interval,
// e.g. {Limit: 10, Interval: time.Second}.
type Rate struct {
	Limit    int
	Interval time.Duration
}

// RateLimiter paces operations according to a configured Rate.
type RateLimiter interface {
	// Wait blocks until an operation is permitted or the context is
	// cancelled. Call it before each rate-limited operation.
	Wait(ctx context.Context) error

	// SetLimit replaces the rate configuration at runtime.
	SetLimit(limit Rate) error
}

// uberLimiter implements RateLimiter on top of go.uber.org/ratelimit.
type uberLimiter struct {
	limiter ratelimit.Limiter
	rate    Rate
}

// NewTokenBucketLimiter creates a token bucket limiter for the given rate.
// The rate is normalized to operations per second for the underlying
// implementation.
func NewTokenBucketLimiter(rate Rate) RateLimiter {
	rps := float64(rate.Limit) / rate.Interval.Seconds()
	return &uberLimiter{
		limiter: ratelimit.New(int(rps)),
		rate:    rate,
	}
}

// Wait implements the RateLimiter interface
func (l *uberLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
	default:
		l.limiter.Take()
		return nil
	}
}

// SetLimit implements the RateLimiter interface
func (l *uberLimiter) SetLimit(rate Rate) error {
	if rate.Limit <= 0 || rate.Interval <= 0 {
		return fmt.Errorf("invalid rate limit: %+v", rate)
	}
	rps := float64(rate.Limit) / rate.Interval.Seconds()
	l.limiter = ratelimit.New(int(rps))
	l.rate = rate
	return nil
}
