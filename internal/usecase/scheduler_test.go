package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worthit/backend/internal/domain"
)

func TestScheduler_TagsResultWithSite(t *testing.T) {
	s := newTestScheduler()

	task := s.Schedule(context.Background(), testSite("Croma", &fakeAdapter{result: priced("iPhone 16", 70000)}, time.Second, 2), "iphone 16")
	got := task.Result()

	assert.Equal(t, "Croma", got.Site)
	assert.Equal(t, "Croma", task.Site)
	assert.NotEmpty(t, task.ID)
	require.NotNil(t, got.Result.Price)
	assert.Equal(t, 70000.0, *got.Result.Price)
	assert.GreaterOrEqual(t, got.Duration, 0.0)
}

func TestScheduler_ExhaustedRetriesKeepAttribution(t *testing.T) {
	s := newTestScheduler()
	sites := []domain.Site{
		testSite("Croma", &fakeAdapter{err: errTransient}, time.Second, 2),
		testSite("Amazon", &fakeAdapter{delay: time.Second}, 10*time.Millisecond, 2),
		testSite("Flipkart", &fakeAdapter{result: priced("iPhone 16", 72000)}, time.Second, 2),
	}

	tasks := s.ScheduleAll(context.Background(), sites, "iphone 16")
	require.Len(t, tasks, 3)

	results := make(map[string]domain.ProductResult)
	for i, task := range tasks {
		tagged := task.Result()
		assert.Equal(t, sites[i].Name, tagged.Site)
		results[tagged.Site] = tagged.Result
	}

	assert.Equal(t, errTransient.Error(), results["Croma"].Error)
	assert.Contains(t, results["Amazon"].Error, domain.ErrAttemptTimeout.Error())
	assert.False(t, results["Flipkart"].Failed())
}

func TestScheduler_RunningMapTracksInFlightTasks(t *testing.T) {
	s := newTestScheduler()
	release := make(chan struct{})
	adapter := domain.AdapterFunc(func(ctx context.Context, query string) (*domain.ProductResult, error) {
		<-release
		return priced("iPhone 16", 70000), nil
	})

	task := s.Schedule(context.Background(), testSite("Croma", adapter, time.Second, 1), "iphone 16")

	running := s.Running()
	assert.Equal(t, map[string]string{task.ID: "Croma"}, running)
	assert.False(t, task.Settled())

	close(release)
	<-task.Done()

	assert.True(t, task.Settled())
	assert.Empty(t, s.Running(), "settled tasks leave the running map")
}

func TestScheduler_CancelSettlesTask(t *testing.T) {
	s := newTestScheduler()
	task := s.Schedule(context.Background(), testSite("Croma", &fakeAdapter{delay: 5 * time.Second}, 10*time.Second, 3), "iphone 16")

	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled task never settled")
	}
	got := task.Result()
	assert.Equal(t, "Croma", got.Site)
	assert.Equal(t, context.Canceled.Error(), got.Result.Error)
	assert.Empty(t, s.Running())
}

func TestScheduler_ParentContextCancelsTasks(t *testing.T) {
	s := newTestScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	tasks := s.ScheduleAll(ctx, []domain.Site{
		testSite("Croma", &fakeAdapter{delay: 5 * time.Second}, 10*time.Second, 1),
		testSite("Amazon", &fakeAdapter{delay: 5 * time.Second}, 10*time.Second, 1),
	}, "iphone 16")
	cancel()

	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-time.After(time.Second):
			t.Fatalf("task for %s never settled", task.Site)
		}
		assert.True(t, task.Result().Result.Failed())
	}
}
