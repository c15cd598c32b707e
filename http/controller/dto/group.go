package dto

import (
	"time"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
)

type CreateGroupRequestDTO struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	NodeIDs     []uint `json:"node_ids"`
}

// UpdateGroupRequestDTO leaves membership untouched when node_ids is absent
type UpdateGroupRequestDTO struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	NodeIDs     *[]uint `json:"node_ids"`
}

type GroupResponseDTO struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"created_at"`
	Nodes       []RefDTO `json:"nodes"`
}

func NewGroupResponse(group entity.NodeGroup) GroupResponseDTO {
	nodes := make([]RefDTO, 0, len(group.Nodes))
	for _, n := range group.Nodes {
		nodes = append(nodes, RefDTO{ID: n.ID, Name: n.Name})
	}
	return GroupResponseDTO{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		CreatedAt:   group.CreatedAt.UTC().Format(time.RFC3339),
		Nodes:       nodes,
	}
}
