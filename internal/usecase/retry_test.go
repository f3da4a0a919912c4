package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worthit/backend/internal/domain"
)

// recordSleeps replaces the caller's sleep with one that records each wait
func recordSleeps(c *Caller) *[]time.Duration {
	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return ctx.Err()
	}
	return &waits
}

func TestCaller_SuccessOnFirstAttempt(t *testing.T) {
	adapter := &fakeAdapter{result: priced("iPhone 16", 70000)}
	caller := NewCaller(NewLimiter(1), time.Second, discardLogger())
	waits := recordSleeps(caller)

	res, err := caller.Call(context.Background(), testSite("Croma", adapter, time.Second, 2), "iphone 16")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "iPhone 16", res.Title)
	assert.EqualValues(t, 1, adapter.calls.Load())
	assert.Empty(t, *waits)
}

func TestCaller_RetriesWithLinearBackoff(t *testing.T) {
	adapter := &fakeAdapter{failFirst: 2, result: priced("iPhone 16", 70000)}
	caller := NewCaller(NewLimiter(1), time.Second, discardLogger())
	waits := recordSleeps(caller)

	res, err := caller.Call(context.Background(), testSite("Croma", adapter, time.Second, 3), "iphone 16")

	require.NoError(t, err)
	assert.Equal(t, 70000.0, *res.Price)
	assert.EqualValues(t, 3, adapter.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestCaller_ExhaustedReturnsLastError(t *testing.T) {
	adapter := &fakeAdapter{err: errors.New("selector not found")}
	caller := NewCaller(NewLimiter(1), 500*time.Millisecond, discardLogger())
	waits := recordSleeps(caller)

	res, err := caller.Call(context.Background(), testSite("Amazon", adapter, time.Second, 2), "iphone 16")

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, "selector not found", err.Error())
	assert.EqualValues(t, 2, adapter.calls.Load())
	// No sleep after the final attempt
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *waits)
}

func TestCaller_TimeoutCountsAsFailedAttempt(t *testing.T) {
	adapter := &fakeAdapter{delay: time.Second}
	caller := newTestCaller(NewLimiter(1))
	waits := recordSleeps(caller)

	start := time.Now()
	_, err := caller.Call(context.Background(), testSite("Croma", adapter, 20*time.Millisecond, 2), "iphone 16")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAttemptTimeout)
	assert.EqualValues(t, 2, adapter.calls.Load())
	assert.Len(t, *waits, 1, "timeouts sleep before retrying like errors")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCaller_NilResultBecomesNoData(t *testing.T) {
	adapter := &fakeAdapter{}
	caller := newTestCaller(NewLimiter(1))

	res, err := caller.Call(context.Background(), testSite("Croma", adapter, time.Second, 2), "iphone 16")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "no_data_returned", res.Error)
	assert.True(t, res.Failed())
	assert.EqualValues(t, 1, adapter.calls.Load(), "nil is not retried")
}

func TestCaller_PanicIsAFailure(t *testing.T) {
	adapter := domain.AdapterFunc(func(ctx context.Context, query string) (*domain.ProductResult, error) {
		panic("parser exploded")
	})
	caller := newTestCaller(NewLimiter(1))

	_, err := caller.Call(context.Background(), testSite("Croma", adapter, time.Second, 2), "iphone 16")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAdapterPanic)
	assert.Contains(t, err.Error(), "parser exploded")
}

func TestCaller_NonPositiveRetriesRunsOnce(t *testing.T) {
	adapter := &fakeAdapter{err: errTransient}
	caller := newTestCaller(NewLimiter(1))

	_, err := caller.Call(context.Background(), testSite("Croma", adapter, time.Second, 0), "iphone 16")

	require.Error(t, err)
	assert.EqualValues(t, 1, adapter.calls.Load())
}

func TestCaller_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	adapter := &fakeAdapter{delay: time.Second}
	caller := newTestCaller(NewLimiter(1))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := caller.Call(ctx, testSite("Croma", adapter, 5*time.Second, 5), "iphone 16")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, adapter.calls.Load())
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrAttemptTimeout, "timeout"},
		{context.Canceled, "cancelled"},
		{domain.ErrAdapterPanic, "panic"},
		{errTransient, "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcomeOf(tt.err))
	}
}
