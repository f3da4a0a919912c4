package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/worthit/backend/internal/domain"
)

// Task is one scheduled scrape. It always settles to a TaggedResult.
type Task struct {
	ID   string
	Site string

	cancel context.CancelFunc
	done   chan struct{}
	result domain.TaggedResult
}

// Done is closed once the task has settled
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result blocks until the task settles and returns its tagged outcome
func (t *Task) Result() domain.TaggedResult {
	<-t.done
	return t.result
}

// Settled reports whether the task has finished
func (t *Task) Settled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Cancel asks the task to stop. Adapters observe it cooperatively.
func (t *Task) Cancel() {
	t.cancel()
}

// Scheduler launches one concurrent task per site and keeps track of which
// site each running task belongs to.
type Scheduler struct {
	caller *Caller
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]string // task id -> site name
}

// NewScheduler creates a scheduler that runs adapters through caller
func NewScheduler(caller *Caller, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		caller:  caller,
		logger:  logger.With("component", "scheduler"),
		running: make(map[string]string),
	}
}

// Schedule starts scraping site for query. The task is bound to ctx and can
// also be cancelled on its own.
func (s *Scheduler) Schedule(ctx context.Context, site domain.Site, query string) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:     uuid.NewString(),
		Site:   site.Name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.running[task.ID] = site.Name
	s.mu.Unlock()
	s.logger.Debug("task scheduled", "task_id", task.ID, "site", site.Name, "tier", site.Tier.String())

	go func() {
		defer close(task.done)
		defer cancel()
		defer s.forget(task.ID)
		task.result = s.runAndTag(taskCtx, site, query)
	}()

	return task
}

// ScheduleAll starts one task per site, preserving the order of sites
func (s *Scheduler) ScheduleAll(ctx context.Context, sites []domain.Site, query string) []*Task {
	tasks := make([]*Task, 0, len(sites))
	for _, site := range sites {
		tasks = append(tasks, s.Schedule(ctx, site, query))
	}
	return tasks
}

// Running returns a snapshot of task id -> site for tasks still in flight
func (s *Scheduler) Running() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.running))
	for id, site := range s.running {
		out[id] = site
	}
	return out
}

func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()
}

// runAndTag never panics or returns an error: every failure becomes an error
// result tagged with the scheduled site.
func (s *Scheduler) runAndTag(ctx context.Context, site domain.Site, query string) (tagged domain.TaggedResult) {
	start := time.Now()
	tagged.Site = site.Name

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task crashed", "site", site.Name, "panic", r)
			tagged.Result = domain.ErrorResult(fmt.Sprintf("%v: %v", domain.ErrAdapterPanic, r))
		}
		tagged.Duration = secondsSince(start)
	}()

	res, err := s.caller.Call(ctx, site, query)
	if err != nil {
		s.logger.Error("task failed", "site", site.Name, "error", err)
		tagged.Result = domain.ErrorResult(err.Error())
		return tagged
	}

	tagged.Result = *res
	s.logger.Info("task settled", "site", site.Name, "duration", time.Since(start))
	return tagged
}

// secondsSince returns elapsed seconds rounded to two decimals
func secondsSince(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}
