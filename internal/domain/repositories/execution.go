package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

// ExecutionRepository owns durable TaskExecution state.
type ExecutionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.TaskExecution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

// Save persists the execution's current state. Lifecycle transitions call
// this once per transition so every state change lands individually.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.TaskExecution) error {
	return r.db.WithContext(ctx).Save(execution).Error
}

func (r *ExecutionRepository) FindByID(ctx context.Context, tenantID, executionID uuid.UUID) (*models.TaskExecution, error) {
	var execution models.TaskExecution
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", executionID, tenantID).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// FindByTask lists executions for one task, newest first.
func (r *ExecutionRepository) FindByTask(ctx context.Context, tenantID, taskID uuid.UUID, opts *ListOptions) ([]models.TaskExecution, int64, error) {
	var executions []models.TaskExecution
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.TaskExecution{}).
		Where("scheduled_task_id = ? AND tenant_id = ?", taskID, tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts != nil {
		query = query.Offset(opts.Offset).Limit(opts.Limit)
	}

	err := query.Order("created_at DESC").Find(&executions).Error
	return executions, total, err
}

// CountForTask returns how many executions the task already has. The next
// execution number is this count plus one; numbers are assigned in creation
// order per task.
func (r *ExecutionRepository) CountForTask(ctx context.Context, tenantID, taskID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TaskExecution{}).
		Where("scheduled_task_id = ? AND tenant_id = ?", taskID, tenantID).
		Count(&count).Error
	return count, err
}

// FindStuck fetches executions that have sat in a non-terminal state longer
// than the threshold, e.g. after a crash between transitions.
func (r *ExecutionRepository) FindStuck(ctx context.Context, threshold time.Duration, limit int) ([]models.TaskExecution, error) {
	cutoff := time.Now().Add(-threshold)

	var executions []models.TaskExecution
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]string{models.ExecutionStatusPending, models.ExecutionStatusRunning}, cutoff).
		Limit(limit).
		Find(&executions).Error
	return executions, err
}

// DeleteTerminalBefore removes completed and failed executions older than the
// cutoff. Returns the number of rows deleted.
func (r *ExecutionRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND status IN ?", cutoff,
			[]string{models.ExecutionStatusCompleted, models.ExecutionStatusFailed}).
		Delete(&models.TaskExecution{})
	return result.RowsAffected, result.Error
}
