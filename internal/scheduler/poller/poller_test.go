package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/dispatcher"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

type fakeSource struct {
	tasks []models.ScheduledTask
	err   error
	calls int32
}

func (f *fakeSource) FindDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledTask, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.tasks) {
		return f.tasks[:limit], nil
	}
	return f.tasks, nil
}

type fakeDispatch struct {
	mu          sync.Mutex
	seen        []uuid.UUID
	inFlight    int32
	maxInFlight int32
	delay       time.Duration
	statusFor   func(task *models.ScheduledTask) *dispatcher.Result
}

func (f *fakeDispatch) Dispatch(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) *dispatcher.Result {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.seen = append(f.seen, task.ID)
	f.mu.Unlock()

	if f.statusFor != nil {
		return f.statusFor(task)
	}
	return &dispatcher.Result{TaskID: task.ID, Status: models.ExecutionStatusCompleted}
}

func dueTasks(n int) []models.ScheduledTask {
	now := time.Now().UTC().Add(-time.Minute)
	tasks := make([]models.ScheduledTask, n)
	for i := range tasks {
		due := now.Add(time.Duration(i) * time.Second)
		tasks[i] = models.ScheduledTask{
			ID:              uuid.New(),
			TenantID:        uuid.New(),
			AgentName:       "batch-agent",
			IsActive:        true,
			NextExecutionAt: &due,
		}
	}
	return tasks
}

func TestPollDispatchesWholeBatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{tasks: dueTasks(7)}
	dispatch := &fakeDispatch{}
	p := New(source, dispatch, metrics.NewCollector(), 100, time.Second, 4)

	p.PollOnce(context.Background())

	if len(dispatch.seen) != 7 {
		t.Fatalf("dispatched = %d, want 7", len(dispatch.seen))
	}
}

func TestPollBoundsConcurrency(t *testing.T) {
	t.Parallel()

	source := &fakeSource{tasks: dueTasks(20)}
	dispatch := &fakeDispatch{delay: 20 * time.Millisecond}
	p := New(source, dispatch, metrics.NewCollector(), 100, time.Second, 3)

	p.PollOnce(context.Background())

	if peak := atomic.LoadInt32(&dispatch.maxInFlight); peak > 3 {
		t.Fatalf("max concurrent dispatches = %d, want <= 3", peak)
	}
	if len(dispatch.seen) != 20 {
		t.Fatalf("dispatched = %d, want 20", len(dispatch.seen))
	}
}

func TestPollStoreErrorSkipsTick(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: errors.New("connection refused")}
	dispatch := &fakeDispatch{}
	p := New(source, dispatch, metrics.NewCollector(), 100, time.Second, 4)

	p.PollOnce(context.Background())

	if len(dispatch.seen) != 0 {
		t.Fatalf("dispatched = %d, want 0 when the store is unreachable", len(dispatch.seen))
	}
}

func TestPollOneFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	tasks := dueTasks(5)
	poisoned := tasks[2].ID

	source := &fakeSource{tasks: tasks}
	dispatch := &fakeDispatch{
		statusFor: func(task *models.ScheduledTask) *dispatcher.Result {
			if task.ID == poisoned {
				return &dispatcher.Result{TaskID: task.ID, Status: models.ExecutionStatusFailed}
			}
			return &dispatcher.Result{TaskID: task.ID, Status: models.ExecutionStatusCompleted}
		},
	}
	p := New(source, dispatch, metrics.NewCollector(), 100, time.Second, 2)

	p.PollOnce(context.Background())

	if len(dispatch.seen) != 5 {
		t.Fatalf("dispatched = %d, want all 5 despite one failure", len(dispatch.seen))
	}
}

func TestPollRespectsBatchSize(t *testing.T) {
	t.Parallel()

	source := &fakeSource{tasks: dueTasks(50)}
	dispatch := &fakeDispatch{}
	p := New(source, dispatch, metrics.NewCollector(), 10, time.Second, 4)

	p.PollOnce(context.Background())

	if len(dispatch.seen) != 10 {
		t.Fatalf("dispatched = %d, want batch size 10", len(dispatch.seen))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	p := New(source, &fakeDispatch{}, metrics.NewCollector(), 10, 5*time.Millisecond, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}

	if atomic.LoadInt32(&source.calls) == 0 {
		t.Error("poller never polled")
	}
}
