package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/worthit/backend/internal/domain"
)

// DefaultBackoff is the linear backoff step between attempts
const DefaultBackoff = 1 * time.Second

// Caller invokes site adapters with a per-attempt timeout and a fixed retry
// budget. Blocking adapters run under the shared Limiter.
type Caller struct {
	limiter *Limiter
	backoff time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCaller creates a Caller. A zero backoff falls back to DefaultBackoff.
func NewCaller(limiter *Limiter, backoff time.Duration, logger *slog.Logger) *Caller {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		limiter: limiter,
		backoff: backoff,
		logger:  logger.With("component", "caller"),
		sleep:   sleepContext,
	}
}

type attemptOutcome struct {
	result *domain.ProductResult
	err    error
}

// Call runs site.Adapter for query up to site.Retries times. Attempts are
// strictly sequential; between them it sleeps backoff*attempt. The last
// failure is returned once the budget is exhausted.
func (c *Caller) Call(ctx context.Context, site domain.Site, query string) (*domain.ProductResult, error) {
	attempts := site.Retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		res, err := c.attempt(ctx, site, query)
		elapsed := time.Since(start)

		if err == nil {
			c.logger.Info("scrape attempt",
				"site", site.Name,
				"attempt", attempt,
				"max_attempts", attempts,
				"timeout", site.Timeout,
				"elapsed", elapsed,
				"outcome", "ok")
			if res == nil {
				return &domain.ProductResult{Error: domain.ErrNoDataReturned.Error()}, nil
			}
			return res, nil
		}

		lastErr = err
		c.logger.Warn("scrape attempt",
			"site", site.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"timeout", site.Timeout,
			"elapsed", elapsed,
			"outcome", outcomeOf(err),
			"error", err)

		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			wait := c.backoff * time.Duration(attempt)
			if err := c.sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}
	}

	c.logger.Error("scrape failed", "site", site.Name, "attempts", attempts, "error", lastErr)
	return nil, lastErr
}

// attempt runs a single bounded call. The adapter goroutine is abandoned on
// timeout; a blocking adapter keeps its permit until the call really returns.
func (c *Caller) attempt(ctx context.Context, site domain.Site, query string) (*domain.ProductResult, error) {
	blocking := site.Mode == domain.ModeBlocking && c.limiter != nil
	if blocking {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, site.Timeout)
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		if blocking {
			defer c.limiter.Release()
		}
		defer func() {
			if r := recover(); r != nil {
				done <- attemptOutcome{err: fmt.Errorf("%w: %v", domain.ErrAdapterPanic, r)}
			}
		}()
		res, err := site.Adapter.Fetch(attemptCtx, query)
		done <- attemptOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", domain.ErrAttemptTimeout, site.Timeout)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrAttemptTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, domain.ErrAdapterPanic):
		return "panic"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
