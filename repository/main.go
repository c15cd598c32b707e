package repository

import (
	"context"
	"errors"

	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when an execution update would move its
// status backwards or out of a terminal state
var ErrInvalidTransition = errors.New("invalid execution status transition")

type Repository struct {
	NodeRepo      *NodeRepository
	GroupRepo     *GroupRepository
	ExecutionRepo *ExecutionRepository

	db *gorm.DB
}

func InitRepository(infra *infra.Infra) *Repository {
	if infra.Database == nil || infra.Database.DB == nil {
		panic("database connection is nil")
	}
	return NewRepository(infra.Database.DB)
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		NodeRepo:      NewNodeRepository(db),
		GroupRepo:     NewGroupRepository(db),
		ExecutionRepo: NewExecutionRepository(db),
		db:            db,
	}
}

// WithContext returns repositories bound to a fresh session carrying ctx.
// Background workers use it so they never share a session with a request.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return NewRepository(r.db.WithContext(ctx))
}
