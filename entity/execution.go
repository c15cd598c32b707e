package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ExecutionStatus represents the lifecycle state of a playbook execution
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// CanTransitionTo enforces pending -> running -> {completed, failed}.
// A pending execution may also be finished directly.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning || next.IsTerminal()
	case ExecutionStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// PlaybookExecution is the persisted outcome of one playbook-run request
type PlaybookExecution struct {
	ID           uint                        `json:"id" gorm:"primaryKey"`
	Playbooks    datatypes.JSONSlice[string] `json:"playbooks" gorm:"not null"`
	TargetNodes  datatypes.JSONSlice[uint]   `json:"target_nodes" gorm:"not null"`
	TargetGroups datatypes.JSONSlice[uint]   `json:"target_groups"`
	Status       ExecutionStatus             `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	StartedAt    time.Time                   `json:"started_at" gorm:"not null;index"`
	CompletedAt  *time.Time                  `json:"completed_at"`
	Output       string                      `json:"output" gorm:"type:text"`
	ErrorOutput  *string                     `json:"error_output" gorm:"type:text"`
}
