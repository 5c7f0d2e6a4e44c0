package snapshot

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/willibrandon/otengine/internal/logger"
)

// RetryPolicy governs how many times and with what backoff a Backend
// call is retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryPolicy returns the retry constants used when the caller
// has no opinion.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

func (p RetryPolicy) execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < p.MaxAttempts-1 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("snapshot operation failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (2*rand.Float64() - 1)
		if d < 0 {
			d = float64(p.InitialDelay)
		}
	}
	return time.Duration(d)
}

// circuitState is the circuit breaker's three-state machine.
type circuitState int32

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker trips after maxFailures consecutive backend failures
// and refuses calls until resetTimeout has elapsed.
type circuitBreaker struct {
	maxFailures     int32
	resetTimeout    time.Duration
	state           int32
	consecutiveFail int32
	lastFailure     time.Time
}

func newCircuitBreaker(maxFailures int32, resetTimeout time.Duration) *circuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &circuitBreaker{maxFailures: maxFailures, resetTimeout: resetTimeout}
}

func (cb *circuitBreaker) allow() bool {
	switch circuitState(atomic.LoadInt32(&cb.state)) {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			atomic.StoreInt32(&cb.state, int32(circuitHalfOpen))
			return true
		}
		return false
	default: // circuitHalfOpen
		return true
	}
}

func (cb *circuitBreaker) recordResult(err error) {
	if err != nil {
		cb.lastFailure = time.Now()
		if atomic.AddInt32(&cb.consecutiveFail, 1) >= cb.maxFailures {
			atomic.StoreInt32(&cb.state, int32(circuitOpen))
		}
		return
	}
	atomic.StoreInt32(&cb.consecutiveFail, 0)
	atomic.StoreInt32(&cb.state, int32(circuitClosed))
}

// ResilientBackend wraps a Backend with retry and circuit-breaker
// protection so a flaky snapshot store degrades to "snapshot skipped,
// log retained" rather than blocking a caller's commit loop. Save
// returns nil on a tripped circuit or exhausted retries, logging the
// drop instead of propagating it, while Load and VerifyIntegrity still
// surface their errors since a caller reading a snapshot back needs to
// know it failed.
type ResilientBackend struct {
	inner  Backend
	policy RetryPolicy
	cb     *circuitBreaker
}

// NewResilientBackend wraps inner with policy and a circuit breaker
// tripping after maxFailures consecutive failures.
func NewResilientBackend(inner Backend, policy RetryPolicy, maxFailures int32, resetTimeout time.Duration) *ResilientBackend {
	return &ResilientBackend{inner: inner, policy: policy, cb: newCircuitBreaker(maxFailures, resetTimeout)}
}

// Save retries inner.Save under policy; a persistent failure or an
// open circuit is logged and swallowed rather than returned.
func (r *ResilientBackend) Save(ctx context.Context, snap *Snapshot) error {
	if !r.cb.allow() {
		logger.Log.Warn("snapshot: circuit open for {Backend}, skipping save for {Document}", r.inner.Name(), snap.DocumentID)
		return nil
	}
	err := r.policy.execute(ctx, func() error { return r.inner.Save(ctx, snap) })
	r.cb.recordResult(err)
	if err != nil {
		logger.Log.Warn("snapshot: save to {Backend} failed after retries, log retained: {Error}", r.inner.Name(), err)
		return nil
	}
	return nil
}

// Load retries inner.Load under policy and returns any final error.
func (r *ResilientBackend) Load(ctx context.Context, documentID string) (*Snapshot, error) {
	var snap *Snapshot
	err := r.policy.execute(ctx, func() error {
		var loadErr error
		snap, loadErr = r.inner.Load(ctx, documentID)
		return loadErr
	})
	r.cb.recordResult(err)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// VerifyIntegrity delegates directly; a failing verification is
// caller-visible information, not a degradable write.
func (r *ResilientBackend) VerifyIntegrity(ctx context.Context, documentID string) (*IntegrityReport, error) {
	return r.inner.VerifyIntegrity(ctx, documentID)
}

// Name reports the wrapped backend's identifier.
func (r *ResilientBackend) Name() string { return r.inner.Name() }

// Close closes the wrapped backend.
func (r *ResilientBackend) Close() error { return r.inner.Close() }
