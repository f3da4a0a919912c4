package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/worthit/backend/internal/domain"
)

// Aggregator merges immediate-tier tasks into a completion-ordered stream
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates a streaming aggregator
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With("component", "aggregator")}
}

// Stream yields one event per task in the order tasks finish, followed by a
// single "_done_" event scored against the prices seen. When ctx is done the
// remaining tasks are cancelled and no further results are produced. The
// channel is buffered for every event so the producer never waits on a
// consumer that went away.
func (a *Aggregator) Stream(ctx context.Context, tasks []*Task, userPrice float64) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent, len(tasks)+1)
	start := time.Now()

	settled := make(chan domain.TaggedResult, len(tasks))
	for _, t := range tasks {
		go func(t *Task) {
			settled <- t.Result()
		}(t)
	}

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("aggregation aborted", "panic", r)
			}
		}()

		marketPrices := make([]float64, 0, len(tasks))
		failed := 0
		cancelled := false

	loop:
		for received := 0; received < len(tasks); received++ {
			var tagged domain.TaggedResult
			select {
			case tagged = <-settled:
			case <-ctx.Done():
				cancelled = true
				break loop
			}

			res := tagged.Result
			if res.Failed() {
				failed++
			}
			if res.HasPrice() {
				marketPrices = append(marketPrices, *res.Price)
			}
			out <- domain.StreamEvent{
				Site:      tagged.Site,
				Result:    &res,
				TimeTaken: secondsSince(start),
			}

			if ctx.Err() != nil {
				cancelled = true
				break
			}
		}

		if cancelled {
			n := cancelPending(tasks)
			a.logger.Info("consumer disconnected, cancelled pending tasks", "cancelled", n)
		}

		score := WorthItScore(userPrice, marketPrices)
		total := secondsSince(start)
		a.logger.Info("stream complete", "total_time", total, "prices", len(marketPrices), "failed", failed, "cancelled", cancelled)
		out <- domain.StreamEvent{
			Site:      domain.DoneSite,
			TotalTime: total,
			WorthIt:   &score,
		}
	}()

	return out
}

func cancelPending(tasks []*Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Settled() {
			t.Cancel()
			n++
		}
	}
	return n
}
