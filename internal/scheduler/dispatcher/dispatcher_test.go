package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fmillanjs/temponest-sub001/internal/agent"
	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/events"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/lifecycle"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/schedule"
)

type fakeExecutionStore struct {
	mu      sync.Mutex
	records []*models.TaskExecution
	saved   []string

	createErr error
	saveErr   error
}

func (f *fakeExecutionStore) Create(ctx context.Context, execution *models.TaskExecution) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	execution.ID = uuid.New()
	f.records = append(f.records, execution)
	return nil
}

func (f *fakeExecutionStore) Save(ctx context.Context, execution *models.TaskExecution) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, execution.Status)
	return nil
}

func (f *fakeExecutionStore) CountForTask(ctx context.Context, tenantID, taskID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, record := range f.records {
		if record.ScheduledTaskID == taskID {
			n++
		}
	}
	return n, nil
}

type fakeTaskStore struct {
	mu         sync.Mutex
	dispatches []recordedDispatch
	err        error
}

type recordedDispatch struct {
	taskID uuid.UUID
	next   *time.Time
}

func (f *fakeTaskStore) RecordDispatch(ctx context.Context, tenantID, taskID uuid.UUID, next *time.Time) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches = append(f.dispatches, recordedDispatch{taskID: taskID, next: next})
	return nil
}

type fakeCaller struct {
	outcome agent.Outcome
	panics  bool
}

func (f *fakeCaller) Execute(ctx context.Context, req agent.Request, timeout time.Duration) agent.Outcome {
	if f.panics {
		panic("caller bug")
	}
	return f.outcome
}

// cancellingCaller cancels the dispatch context during the remote call, like
// an HTTP trigger whose request hit the router timeout mid-flight.
type cancellingCaller struct {
	cancel context.CancelFunc
}

func (c *cancellingCaller) Execute(ctx context.Context, req agent.Request, timeout time.Duration) agent.Outcome {
	c.cancel()
	return agent.Timeout{Message: "agent summary-agent timed out after 30s"}
}

func intervalTask() *models.ScheduledTask {
	interval := 3600
	return &models.ScheduledTask{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		UserID:          uuid.New(),
		AgentName:       "summary-agent",
		ScheduleType:    models.ScheduleTypeInterval,
		IntervalSeconds: &interval,
		TimeoutSeconds:  30,
		IsActive:        true,
	}
}

func newDispatcher(tasks TaskStore, store lifecycle.ExecutionStore, caller ExecutionCaller, limiter *rate.Limiter) *Dispatcher {
	return New(
		tasks,
		lifecycle.New(store),
		caller,
		schedule.NewCalculator(),
		events.NewPublisher(nil),
		metrics.NewCollector(),
		limiter,
	)
}

func TestDispatchSuccess(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}
	caller := &fakeCaller{outcome: agent.Success{
		AgentTaskID: "agent-9",
		Result:      models.JSON{"answer": 42},
		TokensUsed:  10,
		CostUSD:     0.001,
	}}

	d := newDispatcher(taskStore, execStore, caller, nil)
	task := intervalTask()

	result := d.Dispatch(context.Background(), task, time.Now().UTC(), models.TriggerSchedule)

	if result.Err != nil {
		t.Fatalf("Dispatch Err = %v", result.Err)
	}
	if result.Status != models.ExecutionStatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}

	if len(execStore.records) != 1 {
		t.Fatalf("executions created = %d, want 1", len(execStore.records))
	}
	execution := execStore.records[0]
	if execution.Status != models.ExecutionStatusCompleted {
		t.Errorf("execution status = %q, want completed", execution.Status)
	}
	if execution.AgentTaskID == nil || *execution.AgentTaskID != "agent-9" {
		t.Errorf("AgentTaskID = %v, want agent-9", execution.AgentTaskID)
	}

	if len(taskStore.dispatches) != 1 {
		t.Fatalf("RecordDispatch calls = %d, want 1", len(taskStore.dispatches))
	}
	if taskStore.dispatches[0].next == nil {
		t.Error("next execution not recomputed for interval task")
	}
}

func TestDispatchFailureOutcomesTerminate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome agent.Outcome
		wantMsg string
	}{
		{"remote failure", agent.RemoteFailure{Message: "agent crashed"}, "agent crashed"},
		{"transport error", agent.TransportError{Message: "HTTP 503"}, "HTTP 503"},
		{"timeout", agent.Timeout{Message: "agent summary-agent timed out after 30s"}, "timed out"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			execStore := &fakeExecutionStore{}
			taskStore := &fakeTaskStore{}

			d := newDispatcher(taskStore, execStore, &fakeCaller{outcome: tt.outcome}, nil)
			result := d.Dispatch(context.Background(), intervalTask(), time.Now().UTC(), models.TriggerSchedule)

			if result.Status != models.ExecutionStatusFailed {
				t.Errorf("Status = %q, want failed", result.Status)
			}
			if result.Err != nil {
				t.Errorf("Err = %v, want nil: remote failures are recorded, not escalated", result.Err)
			}

			execution := execStore.records[0]
			if execution.Status != models.ExecutionStatusFailed {
				t.Errorf("execution status = %q, want failed", execution.Status)
			}
			if execution.ErrorMessage == nil || !strings.Contains(*execution.ErrorMessage, tt.wantMsg) {
				t.Errorf("ErrorMessage = %v, want it to contain %q", execution.ErrorMessage, tt.wantMsg)
			}

			// A failed run still gets its next fire time.
			if len(taskStore.dispatches) != 1 || taskStore.dispatches[0].next == nil {
				t.Error("next execution not recomputed after failure")
			}
		})
	}
}

func TestDispatchPanicBecomesFailedExecution(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}

	d := newDispatcher(taskStore, execStore, &fakeCaller{panics: true}, nil)
	result := d.Dispatch(context.Background(), intervalTask(), time.Now().UTC(), models.TriggerSchedule)

	if result.Status != models.ExecutionStatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	execution := execStore.records[0]
	if execution.ErrorMessage == nil || !strings.Contains(*execution.ErrorMessage, "unexpected dispatch error") {
		t.Errorf("ErrorMessage = %v", execution.ErrorMessage)
	}
}

func TestDispatchCreateErrorEscalates(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{createErr: errors.New("db down")}
	taskStore := &fakeTaskStore{}

	d := newDispatcher(taskStore, execStore, &fakeCaller{outcome: agent.Success{}}, nil)
	result := d.Dispatch(context.Background(), intervalTask(), time.Now().UTC(), models.TriggerSchedule)

	if result.Err == nil {
		t.Fatal("expected persistence error to escalate")
	}
	// Without an execution record nothing was dispatched, so the task keeps
	// its due time for the next tick.
	if len(taskStore.dispatches) != 0 {
		t.Error("RecordDispatch called despite create failure")
	}
}

func TestDispatchExecutionNumbering(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}
	d := newDispatcher(taskStore, execStore, &fakeCaller{outcome: agent.Success{}}, nil)
	task := intervalTask()

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), task, time.Now().UTC(), models.TriggerSchedule)
	}

	for i, execution := range execStore.records {
		if execution.ExecutionNumber != i+1 {
			t.Errorf("execution %d: number = %d, want %d", i, execution.ExecutionNumber, i+1)
		}
	}
}

func TestDispatchRateLimitSkipsScheduledOnly(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}
	// A zero-rate limiter with no burst always refuses.
	limiter := rate.NewLimiter(0, 0)

	d := newDispatcher(taskStore, execStore, &fakeCaller{outcome: agent.Success{}}, limiter)

	result := d.Dispatch(context.Background(), intervalTask(), time.Now().UTC(), models.TriggerSchedule)
	if !result.Skipped {
		t.Fatal("scheduled dispatch not skipped under exhausted limiter")
	}
	if len(execStore.records) != 0 {
		t.Error("skipped dispatch created an execution")
	}
	if len(taskStore.dispatches) != 0 {
		t.Error("skipped dispatch rewrote next_execution_at; task would lose its turn")
	}

	result = d.Dispatch(context.Background(), intervalTask(), time.Now().UTC(), models.TriggerManual)
	if result.Skipped {
		t.Fatal("manual trigger should bypass the rate limit")
	}
	if result.Status != models.ExecutionStatusCompleted {
		t.Errorf("manual trigger status = %q, want completed", result.Status)
	}
}

func TestDispatchTerminalWriteSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newDispatcher(taskStore, execStore, &cancellingCaller{cancel: cancel}, nil)
	result := d.Dispatch(ctx, intervalTask(), time.Now().UTC(), models.TriggerManual)

	if result.Err != nil {
		t.Fatalf("Err = %v", result.Err)
	}
	if result.Status != models.ExecutionStatusFailed {
		t.Errorf("Status = %q, want failed", result.Status)
	}

	// The failed state must land immediately, not wait for stale recovery.
	if n := len(execStore.saved); n == 0 || execStore.saved[n-1] != models.ExecutionStatusFailed {
		t.Errorf("persisted statuses = %v, want a final failed write", execStore.saved)
	}
	if len(taskStore.dispatches) != 1 || taskStore.dispatches[0].next == nil {
		t.Error("next execution not recorded after caller gave up")
	}
}

func TestDispatchOnceTaskGetsNoNextExecution(t *testing.T) {
	t.Parallel()

	execStore := &fakeExecutionStore{}
	taskStore := &fakeTaskStore{}
	d := newDispatcher(taskStore, execStore, &fakeCaller{outcome: agent.Success{}}, nil)

	at := time.Now().UTC().Add(-time.Minute)
	task := intervalTask()
	task.ScheduleType = models.ScheduleTypeOnce
	task.IntervalSeconds = nil
	task.ScheduledTime = &at

	result := d.Dispatch(context.Background(), task, at, models.TriggerSchedule)
	if result.Status != models.ExecutionStatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if len(taskStore.dispatches) != 1 {
		t.Fatalf("RecordDispatch calls = %d, want 1", len(taskStore.dispatches))
	}
	if taskStore.dispatches[0].next != nil {
		t.Errorf("next = %v, want nil: one-shot tasks never reschedule", taskStore.dispatches[0].next)
	}
}
