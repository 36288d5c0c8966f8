package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

// TaskRepository owns durable ScheduledTask state. Every query is scoped by
// tenant except the due-task scan, which spans tenants by design and carries
// the tenant on each returned row.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.ScheduledTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) FindByID(ctx context.Context, tenantID, taskID uuid.UUID) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, opts *ListOptions) ([]models.ScheduledTask, int64, error) {
	var tasks []models.ScheduledTask
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts != nil {
		query = query.Offset(opts.Offset).Limit(opts.Limit).Order(opts.OrderBy + " " + opts.Order)
	}

	err := query.Find(&tasks).Error
	return tasks, total, err
}

// FindDue fetches up to limit dispatchable tasks ordered earliest-due-first.
func (r *TaskRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_paused = ? AND next_execution_at <= ?", true, false, now).
		Order("next_execution_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// TaskPatch carries the mutable fields of a task. Only present (non-nil)
// members are written, each through a fixed column binding, so callers can
// never reach columns outside this set.
type TaskPatch struct {
	Name              *string
	Description       *string
	TaskPayload       models.JSON
	Tags              models.StringArray
	ScheduleType      *string
	CronExpression    *string
	IntervalSeconds   *int
	ScheduledTime     *time.Time
	Timezone          *string
	TimeoutSeconds    *int
	MaxRetries        *int
	RetryDelaySeconds *int
}

// TouchesSchedule reports whether applying the patch changes when the task
// fires, requiring a next-execution recompute.
func (p *TaskPatch) TouchesSchedule() bool {
	return p.ScheduleType != nil || p.CronExpression != nil ||
		p.IntervalSeconds != nil || p.ScheduledTime != nil || p.Timezone != nil
}

func (p *TaskPatch) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.TaskPayload != nil {
		updates["task_payload"] = p.TaskPayload
	}
	if p.Tags != nil {
		updates["tags"] = p.Tags
	}
	if p.ScheduleType != nil {
		updates["schedule_type"] = *p.ScheduleType
	}
	if p.CronExpression != nil {
		updates["cron_expression"] = *p.CronExpression
	}
	if p.IntervalSeconds != nil {
		updates["interval_seconds"] = *p.IntervalSeconds
	}
	if p.ScheduledTime != nil {
		updates["scheduled_time"] = *p.ScheduledTime
	}
	if p.Timezone != nil {
		updates["timezone"] = *p.Timezone
	}
	if p.TimeoutSeconds != nil {
		updates["timeout_seconds"] = *p.TimeoutSeconds
	}
	if p.MaxRetries != nil {
		updates["max_retries"] = *p.MaxRetries
	}
	if p.RetryDelaySeconds != nil {
		updates["retry_delay_seconds"] = *p.RetryDelaySeconds
	}
	return updates
}

func (r *TaskRepository) ApplyPatch(ctx context.Context, tenantID, taskID uuid.UUID, patch *TaskPatch) error {
	updates := patch.columns()
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Updates(updates).Error
}

func (r *TaskRepository) Delete(ctx context.Context, tenantID, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Delete(&models.ScheduledTask{}).Error
}

func (r *TaskRepository) SetPaused(ctx context.Context, tenantID, taskID uuid.UUID, paused bool) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Update("is_paused", paused).Error
}

func (r *TaskRepository) SetNextExecution(ctx context.Context, tenantID, taskID uuid.UUID, next *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Update("next_execution_at", next).Error
}

// RecordDispatch advances the task after one dispatch: bumps the execution
// counter and persists the recomputed next fire time (nil when the task will
// not run again automatically).
func (r *TaskRepository) RecordDispatch(ctx context.Context, tenantID, taskID uuid.UUID, next *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Updates(map[string]interface{}{
			"next_execution_at": next,
			"total_executions":  gorm.Expr("total_executions + 1"),
		}).Error
}
