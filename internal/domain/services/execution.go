package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/domain/repositories"
)

var ErrExecutionNotFound = errors.New("execution not found")

// ExecutionStore is the persistence contract ExecutionService needs.
// Satisfied by repositories.ExecutionRepository.
type ExecutionStore interface {
	FindByID(ctx context.Context, tenantID, executionID uuid.UUID) (*models.TaskExecution, error)
	FindByTask(ctx context.Context, tenantID, taskID uuid.UUID, opts *repositories.ListOptions) ([]models.TaskExecution, int64, error)
}

// ExecutionService surfaces execution history to the API layer. The engine
// itself writes executions through the lifecycle, never through here.
type ExecutionService struct {
	store ExecutionStore
}

func NewExecutionService(store ExecutionStore) *ExecutionService {
	return &ExecutionService{store: store}
}

func (s *ExecutionService) GetByID(ctx context.Context, tenantID, executionID uuid.UUID) (*models.TaskExecution, error) {
	execution, err := s.store.FindByID(ctx, tenantID, executionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, err
	}
	return execution, nil
}

// ListByTask returns the task's executions newest first.
func (s *ExecutionService) ListByTask(ctx context.Context, tenantID, taskID uuid.UUID, opts *repositories.ListOptions) ([]models.TaskExecution, int64, error) {
	return s.store.FindByTask(ctx, tenantID, taskID, opts)
}
