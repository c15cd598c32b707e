package dto

import (
	"time"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
)

type CreateNodeRequestDTO struct {
	Name        string `json:"name" binding:"required,max=100"`
	Hostname    string `json:"hostname" binding:"required,max=255"`
	Username    string `json:"username" binding:"required,max=100"`
	Port        *int   `json:"port" binding:"omitempty,min=1,max=65535"`
	Description string `json:"description"`
}

type UpdateNodeRequestDTO struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Hostname    *string `json:"hostname" binding:"omitempty,min=1,max=255"`
	Username    *string `json:"username" binding:"omitempty,min=1,max=100"`
	Port        *int    `json:"port" binding:"omitempty,min=1,max=65535"`
	Description *string `json:"description"`
}

// RefDTO is the short form used when nodes and groups reference each other
type RefDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type NodeResponseDTO struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Hostname    string            `json:"hostname"`
	Username    string            `json:"username"`
	Port        int               `json:"port"`
	Description string            `json:"description"`
	Status      entity.NodeStatus `json:"status"`
	CreatedAt   string            `json:"created_at"`
	Groups      []RefDTO          `json:"groups"`
}

func NewNodeResponse(node entity.Node) NodeResponseDTO {
	groups := make([]RefDTO, 0, len(node.Groups))
	for _, g := range node.Groups {
		groups = append(groups, RefDTO{ID: g.ID, Name: g.Name})
	}
	return NodeResponseDTO{
		ID:          node.ID,
		Name:        node.Name,
		Hostname:    node.Hostname,
		Username:    node.Username,
		Port:        node.Port,
		Description: node.Description,
		Status:      node.Status,
		CreatedAt:   node.CreatedAt.UTC().Format(time.RFC3339),
		Groups:      groups,
	}
}
