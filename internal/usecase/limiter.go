package usecase

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultLimiterCapacity bounds concurrently executing blocking adapters
const DefaultLimiterCapacity = 4

// Limiter is a counting permit pool guarding the shared resource blocking
// adapters consume (a browser process pool, for instance).
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
}

// NewLimiter creates a limiter with the given number of permits
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultLimiterCapacity
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a permit is free or ctx is done
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inUse.Add(1)
	return nil
}

// Release returns a permit taken by Acquire
func (l *Limiter) Release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
}

// Capacity returns the configured number of permits
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// Available returns the number of permits not currently held
func (l *Limiter) Available() int {
	return int(l.capacity - l.inUse.Load())
}
