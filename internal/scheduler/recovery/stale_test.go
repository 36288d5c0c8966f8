package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/lifecycle"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

type fakeStuckStore struct {
	stuck   []models.TaskExecution
	findErr error

	saved []*models.TaskExecution
}

func (f *fakeStuckStore) FindStuck(ctx context.Context, threshold time.Duration, limit int) ([]models.TaskExecution, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.stuck, nil
}

func (f *fakeStuckStore) Create(ctx context.Context, execution *models.TaskExecution) error {
	return nil
}

func (f *fakeStuckStore) Save(ctx context.Context, execution *models.TaskExecution) error {
	f.saved = append(f.saved, execution)
	return nil
}

func (f *fakeStuckStore) CountForTask(ctx context.Context, tenantID, taskID uuid.UUID) (int64, error) {
	return 0, nil
}

func TestRecoverMarksStuckExecutionsFailed(t *testing.T) {
	t.Parallel()

	started := time.Now().UTC().Add(-time.Hour)
	store := &fakeStuckStore{
		stuck: []models.TaskExecution{
			{ID: uuid.New(), Status: models.ExecutionStatusRunning, StartedAt: &started},
			{ID: uuid.New(), Status: models.ExecutionStatusPending},
		},
	}
	collector := metrics.NewCollector()

	r := NewStaleRecovery(store, lifecycle.New(store), collector, 10*time.Minute)
	r.RecoverOnce(context.Background())

	if len(store.saved) != 2 {
		t.Fatalf("terminated = %d, want 2", len(store.saved))
	}
	for _, execution := range store.saved {
		if execution.Status != models.ExecutionStatusFailed {
			t.Errorf("status = %q, want failed", execution.Status)
		}
		if execution.ErrorMessage == nil {
			t.Error("stuck execution terminated without a message")
		}
	}
	if got := collector.Snapshot().RecoveredTotal; got != 2 {
		t.Errorf("RecoveredTotal = %d, want 2", got)
	}
}

func TestRecoverStoreErrorIsNonFatal(t *testing.T) {
	t.Parallel()

	store := &fakeStuckStore{findErr: errors.New("db down")}
	r := NewStaleRecovery(store, lifecycle.New(store), metrics.NewCollector(), 10*time.Minute)

	r.RecoverOnce(context.Background())

	if len(store.saved) != 0 {
		t.Fatal("nothing should be saved when the store is unreachable")
	}
}
