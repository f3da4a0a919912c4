package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/worthit/backend/internal/domain"
)

var errTransient = errors.New("transient failure")

// fakeAdapter is a configurable domain.Adapter for tests
type fakeAdapter struct {
	delay     time.Duration
	result    *domain.ProductResult
	err       error
	failFirst int // calls failing before the adapter starts succeeding
	calls     atomic.Int32
}

func (f *fakeAdapter) Fetch(ctx context.Context, query string) (*domain.ProductResult, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if int(n) <= f.failFirst {
		return nil, errTransient
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func priced(title string, price float64) *domain.ProductResult {
	return &domain.ProductResult{Title: title, Price: &price}
}

func testSite(name string, adapter domain.Adapter, timeout time.Duration, retries int) domain.Site {
	return domain.Site{
		Name:    name,
		Mode:    domain.ModeAsync,
		Adapter: adapter,
		Timeout: timeout,
		Retries: retries,
	}
}

// newTestCaller returns a caller with a 1ms backoff and no real sleeping
// beyond that
func newTestCaller(limiter *Limiter) *Caller {
	return NewCaller(limiter, time.Millisecond, discardLogger())
}

func newTestScheduler() *Scheduler {
	return NewScheduler(newTestCaller(NewLimiter(2)), discardLogger())
}
