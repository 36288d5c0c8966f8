package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskExecution struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ScheduledTaskID uuid.UUID `gorm:"type:uuid;index;not null" json:"scheduled_task_id"`
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`

	AgentName       string    `gorm:"size:100;not null" json:"agent_name"`
	ScheduledFor    time.Time `gorm:"not null" json:"scheduled_for"`
	ExecutionNumber int       `gorm:"not null" json:"execution_number"`
	TriggerType     string    `gorm:"size:20;not null;default:schedule" json:"trigger_type"`

	Status      string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	AgentTaskID *string    `gorm:"size:100" json:"agent_task_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Success bookkeeping.
	Result     JSON     `gorm:"type:jsonb" json:"result,omitempty"`
	TokensUsed *int     `json:"tokens_used,omitempty"`
	CostUSD    *float64 `gorm:"column:cost_usd" json:"cost_usd,omitempty"`
	DurationMs *int64   `json:"duration_ms,omitempty"`

	// Failure bookkeeping. MaxRetries is a snapshot of the owning task's
	// policy at creation time; the engine never re-dispatches on its own.
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int     `gorm:"default:0" json:"retry_count"`
	MaxRetries   int     `gorm:"default:0" json:"max_retries"`

	CreatedAt time.Time `json:"created_at"`

	Task ScheduledTask `gorm:"foreignKey:ScheduledTaskID" json:"-"`
}

func (TaskExecution) TableName() string {
	return "task_executions"
}

// Terminal reports whether the execution has reached a final state.
func (e *TaskExecution) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}
