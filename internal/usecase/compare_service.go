package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/worthit/backend/internal/domain"
)

// WarmupQuery is scraped once at startup to prime the immediate tier
const WarmupQuery = "iphone 16"

// warmupPolicy applies to every immediate site during warm-up
var warmupPolicy = SitePolicy{Timeout: 30 * time.Second, Retries: 1}

// CompareServiceConfig holds the sites the service orchestrates
type CompareServiceConfig struct {
	Immediate []domain.Site
}

// CompareService runs the immediate tier as a live stream and hands the
// background tier to the registry.
type CompareService struct {
	scheduler  *Scheduler
	aggregator *Aggregator
	registry   *Registry
	immediate  []domain.Site
	logger     *slog.Logger
}

// NewCompareService creates a compare service with dependencies
func NewCompareService(
	scheduler *Scheduler,
	aggregator *Aggregator,
	registry *Registry,
	config CompareServiceConfig,
	logger *slog.Logger,
) *CompareService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompareService{
		scheduler:  scheduler,
		aggregator: aggregator,
		registry:   registry,
		immediate:  config.Immediate,
		logger:     logger.With("component", "compare"),
	}
}

// Compare launches the immediate tier for query and returns its event
// stream. The background job for the query is started unless one is
// already running. Cancelling ctx stops the stream and the immediate tasks
// but never the background job.
func (s *CompareService) Compare(ctx context.Context, query string, userPrice float64) (<-chan domain.StreamEvent, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	s.logger.Info("compare request", "query", q, "user_price", userPrice)

	tasks := s.scheduler.ScheduleAll(ctx, s.immediate, q)
	s.registry.StartOrGet(q)

	return s.aggregator.Stream(ctx, tasks, userPrice), nil
}

// More returns the background-tier results for query, or a loading status
// while the job is still running. userPrice may be nil.
func (s *CompareService) More(ctx context.Context, query string, userPrice *float64) (*domain.MoreResponse, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	poll, err := s.registry.Poll(ctx, q)
	if err != nil {
		return nil, err
	}

	if poll.Status == PollLoading {
		return &domain.MoreResponse{
			Query:   query,
			Status:  domain.StatusLoading,
			WorthIt: PlaceholderScore(),
		}, nil
	}

	elapsed := math.Round(poll.Elapsed.Seconds()*100) / 100
	s.logger.Info("background results served",
		"query", q,
		"sites", len(poll.Results),
		"on_demand", poll.OnDemand,
		"elapsed", elapsed)
	return &domain.MoreResponse{
		Query:               query,
		Results:             poll.Results,
		WorthIt:             scoreOrPlaceholder(userPrice, MarketPrices(poll.Results)),
		TimeTakenBackground: &elapsed,
	}, nil
}

// Warmup scrapes WarmupQuery over the immediate tier and discards the
// results. It returns once every site has settled or ctx is done.
func (s *CompareService) Warmup(ctx context.Context) {
	s.logger.Info("warming up immediate scrapers", "query", WarmupQuery, "sites", len(s.immediate))
	tasks := s.scheduler.ScheduleAll(ctx, WithPolicy(s.immediate, warmupPolicy), WarmupQuery)
	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			s.logger.Warn("warmup interrupted", "error", ctx.Err())
			return
		}
	}
	s.logger.Info("warmup complete")
}

// Diagnostics reports running tasks and registry size
func (s *CompareService) Diagnostics() domain.Diagnostics {
	return domain.Diagnostics{
		RunningTasks: s.scheduler.Running(),
		Jobs:         s.registry.Size(),
	}
}

// scoreOrPlaceholder treats a missing or zero user price as absent
func scoreOrPlaceholder(userPrice *float64, prices []float64) domain.ScoreResult {
	if userPrice == nil || *userPrice == 0 {
		return PlaceholderScore()
	}
	return WorthItScore(*userPrice, prices)
}
