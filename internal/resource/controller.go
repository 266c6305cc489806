package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds request limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrent store requests.
	// If 0, requests are not bounded.
	MaxInFlight int64

	// RequestsPerSecond caps the store request rate.
	// If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the token bucket size. Defaults to max(1, RequestsPerSecond).
	Burst int
}

// Controller enforces Config.
type Controller struct {
	cfg      Config
	sem      *semaphore.Weighted // nil if unbounded
	limiter  *rate.Limiter       // nil if unlimited
	inFlight atomic.Int64
	total    atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// Acquire waits for a rate token and an in-flight slot.
// The returned func releases the slot and must be called exactly once.
// Acquire fails once ctx is done, also on a nil Controller.
func (c *Controller) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil {
		return func() {}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	c.inFlight.Add(1)
	c.total.Add(1)

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		c.inFlight.Add(-1)
		if c.sem != nil {
			c.sem.Release(1)
		}
	}, nil
}

// TryAcquire is the non-blocking form of Acquire.
func (c *Controller) TryAcquire() (func(), bool) {
	if c == nil {
		return func() {}, true
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, false
	}
	if c.sem != nil && !c.sem.TryAcquire(1) {
		return nil, false
	}

	c.inFlight.Add(1)
	c.total.Add(1)

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		c.inFlight.Add(-1)
		if c.sem != nil {
			c.sem.Release(1)
		}
	}, true
}

// InFlight returns the number of requests currently holding a slot.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inFlight.Load()
}

// Total returns the number of requests admitted so far.
func (c *Controller) Total() int64 {
	if c == nil {
		return 0
	}
	return c.total.Load()
}
