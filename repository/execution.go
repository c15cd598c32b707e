package repository

import (
	"errors"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"gorm.io/gorm"
)

type ExecutionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Create(execution *entity.PlaybookExecution) error {
	if execution == nil {
		return errors.New("execution cannot be nil")
	}
	return r.db.Create(execution).Error
}

func (r *ExecutionRepository) FindByID(id uint) (*entity.PlaybookExecution, error) {
	var execution entity.PlaybookExecution
	err := r.db.First(&execution, id).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// ListRecent returns up to limit executions, newest first
func (r *ExecutionRepository) ListRecent(limit int) ([]entity.PlaybookExecution, error) {
	var executions []entity.PlaybookExecution
	err := r.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// MarkRunning moves a pending execution to running
func (r *ExecutionRepository) MarkRunning(id uint) error {
	result := r.db.Model(&entity.PlaybookExecution{}).
		Where("id = ? AND status = ?", id, entity.ExecutionStatusPending).
		Update("status", entity.ExecutionStatusRunning)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Finish persists the terminal state of an execution. Rows already in a
// terminal state are left untouched and ErrInvalidTransition is returned.
func (r *ExecutionRepository) Finish(execution *entity.PlaybookExecution) error {
	if !execution.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	result := r.db.Model(&entity.PlaybookExecution{}).
		Where("id = ? AND status IN ?", execution.ID, []entity.ExecutionStatus{
			entity.ExecutionStatusPending,
			entity.ExecutionStatusRunning,
		}).
		Updates(map[string]interface{}{
			"status":       execution.Status,
			"completed_at": execution.CompletedAt,
			"output":       execution.Output,
			"error_output": execution.ErrorOutput,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
