package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/worthit/backend/internal/domain"
)

// Registry retention defaults
const (
	DefaultJobTTL        = 30 * time.Minute
	DefaultMaxJobEntries = 500
)

// JobStore holds background jobs by normalized query. Entries stored with a
// ttl <= 0 must never expire or be evicted.
type JobStore interface {
	Get(key string) (*Job, error)
	Set(key string, job *Job, ttl time.Duration) error
	Delete(key string) error
	Size() int
}

// Job is the background-tier aggregation for one normalized query
type Job struct {
	ID    string
	Key   string
	Query string

	tasks      []*Task
	done       chan struct{}
	results    map[string]domain.ProductResult
	startedAt  time.Time
	finishedAt time.Time
}

// Done is closed once every task of the job has settled
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Settled reports whether the job has completed
func (j *Job) Settled() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Results returns a copy of the per-site outcomes, or nil while pending
func (j *Job) Results() map[string]domain.ProductResult {
	if !j.Settled() {
		return nil
	}
	out := make(map[string]domain.ProductResult, len(j.results))
	for site, res := range j.results {
		out[site] = res
	}
	return out
}

// Elapsed returns how long the job ran, or zero while pending
func (j *Job) Elapsed() time.Duration {
	if !j.Settled() {
		return 0
	}
	return j.finishedAt.Sub(j.startedAt)
}

// Wait blocks until the job settles or ctx is done
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollStatus describes the state of a background query
type PollStatus int

const (
	// PollLoading means the job is still running
	PollLoading PollStatus = iota
	// PollCompleted means Results holds every site's outcome
	PollCompleted
)

// PollResult is what a poll observed
type PollResult struct {
	Status   PollStatus
	Results  map[string]domain.ProductResult
	Elapsed  time.Duration
	OnDemand bool // fetched synchronously, bypassing the registry
}

// RegistryConfig holds retention settings for settled jobs
type RegistryConfig struct {
	TTL time.Duration
}

// Registry memoizes background-tier work per normalized query so duplicate
// requests share one execution.
type Registry struct {
	store     JobStore
	scheduler *Scheduler
	sites     []domain.Site
	baseCtx   context.Context
	ttl       time.Duration
	logger    *slog.Logger

	mu sync.Mutex
}

// NewRegistry creates a registry. Background tasks are bound to baseCtx, not
// to any request, so they outlive client disconnects.
func NewRegistry(
	baseCtx context.Context,
	store JobStore,
	scheduler *Scheduler,
	sites []domain.Site,
	config RegistryConfig,
	logger *slog.Logger,
) *Registry {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:     store,
		scheduler: scheduler,
		sites:     sites,
		baseCtx:   baseCtx,
		ttl:       ttl,
		logger:    logger.With("component", "registry"),
	}
}

// NormalizeQuery builds the registry key for a query
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// StartOrGet returns the pending job for query, or launches a new one when
// there is none or the previous job has settled. created reports a launch.
func (r *Registry) StartOrGet(query string) (job *Job, created bool) {
	key := NormalizeQuery(query)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, err := r.store.Get(key); err == nil {
		if !existing.Settled() {
			r.logger.Info("background job already running", "query", key, "job_id", existing.ID)
			return existing, false
		}
		// Settled results are superseded by the new run
		_ = r.store.Delete(key)
		r.logger.Debug("settled background job replaced", "query", key, "job_id", existing.ID)
	}

	job = r.launch(r.baseCtx, key, strings.TrimSpace(query))
	_ = r.store.Set(key, job, 0)
	r.logger.Info("background job scheduled", "query", key, "job_id", job.ID, "tasks", len(job.tasks))

	go func() {
		<-job.done
		r.settle(job)
	}()

	return job, true
}

// Poll reports the state of the background job for query. Without a job the
// background sites are fetched synchronously and nothing is registered.
func (r *Registry) Poll(ctx context.Context, query string) (PollResult, error) {
	key := NormalizeQuery(query)

	job, err := r.store.Get(key)
	if err != nil {
		r.logger.Info("no background job, fetching on demand", "query", key)
		onDemand := r.launch(ctx, key, strings.TrimSpace(query))
		if err := onDemand.Wait(ctx); err != nil {
			return PollResult{}, err
		}
		return PollResult{
			Status:   PollCompleted,
			Results:  onDemand.Results(),
			Elapsed:  onDemand.Elapsed(),
			OnDemand: true,
		}, nil
	}

	if !job.Settled() {
		return PollResult{Status: PollLoading}, nil
	}
	return PollResult{
		Status:  PollCompleted,
		Results: job.Results(),
		Elapsed: job.Elapsed(),
	}, nil
}

// Size returns the number of stored jobs
func (r *Registry) Size() int {
	return r.store.Size()
}

// launch schedules every background site and gathers them into a job
func (r *Registry) launch(ctx context.Context, key, query string) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Key:       key,
		Query:     query,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	job.tasks = r.scheduler.ScheduleAll(ctx, r.sites, query)

	go func() {
		job.results = gatherResults(job.tasks)
		job.finishedAt = time.Now()
		close(job.done)
		r.logger.Info("background job finished", "query", key, "job_id", job.ID, "elapsed", job.finishedAt.Sub(job.startedAt))
	}()

	return job
}

// settle starts the retention clock for a finished job, unless a newer job
// has replaced it
func (r *Registry) settle(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.Get(job.Key)
	if err != nil || current != job {
		return
	}
	_ = r.store.Set(job.Key, job, r.ttl)
}

// gatherResults waits for every task and maps its site to its outcome. A
// task settling without a site tag is recorded under its scheduled site.
func gatherResults(tasks []*Task) map[string]domain.ProductResult {
	out := make(map[string]domain.ProductResult, len(tasks))
	for _, t := range tasks {
		tagged := t.Result()
		site := tagged.Site
		if site == "" {
			site = t.Site
		}
		out[site] = tagged.Result
	}
	return out
}
