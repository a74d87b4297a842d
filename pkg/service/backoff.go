// Copyright 2025 Certen Protocol
//
// Exponential backoff with jitter, wrapping the service loop's per-cycle
// work so a run of transient RPC/settlement failures degrades gracefully
// instead of hammering either chain.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Backoff is an exponential-backoff policy: start at Initial, double on
// every failure up to Max, add uniform jitter in [0, JitterMax), and give
// up once Deadline has elapsed since the first attempt.
type Backoff struct {
	Initial   time.Duration
	Max       time.Duration
	JitterMax time.Duration
	Deadline  time.Duration
}

// DefaultBackoff is the bridge's fixed retry policy: 1s initial interval
// doubling up to a 2h cap, up to 1s of jitter, giving up after 48h of
// continuous failure.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:   time.Second,
		Max:       2 * time.Hour,
		JitterMax: time.Second,
		Deadline:  48 * time.Hour,
	}
}

// Run calls op repeatedly until it succeeds, ctx is done, or Deadline has
// elapsed since the first call.
func (b Backoff) Run(ctx context.Context, op func(ctx context.Context) error) error {
	start := time.Now()
	interval := b.Initial

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > b.Deadline {
			return fmt.Errorf("service: giving up after %s of retries: %w", b.Deadline, err)
		}

		sleep := interval
		if b.JitterMax > 0 {
			sleep += time.Duration(rand.Int64N(int64(b.JitterMax)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		interval *= 2
		if interval > b.Max {
			interval = b.Max
		}
	}
}
