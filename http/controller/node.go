package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller/dto"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
	"gorm.io/gorm"
)

func (ctrl *Controller) ListNodes(c *gin.Context) {
	ctx := c.Request.Context()

	nodes, err := ctrl.repo(c).NodeRepo.List()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Failed to list nodes")
		utils.JSON500(c, "Failed to list nodes")
		return
	}

	response := make([]dto.NodeResponseDTO, 0, len(nodes))
	for _, node := range nodes {
		response = append(response, dto.NewNodeResponse(node))
	}
	utils.JSON200(c, response)
}

func (ctrl *Controller) CreateNode(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateNodeRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Node] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	repo := ctrl.repo(c)
	exists, err := repo.NodeRepo.ExistsByName(req.Name, 0)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Error checking node name existence")
		utils.JSON500(c, "Error checking node name existence")
		return
	}
	if exists {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Node] Node with name '%s' already exists", req.Name)
		utils.JSON409(c, "Node with this name already exists")
		return
	}

	node := &entity.Node{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Username:    req.Username,
		Port:        22,
		Description: req.Description,
		Status:      entity.NodeStatusUnknown,
	}
	if req.Port != nil {
		node.Port = *req.Port
	}

	if err := repo.NodeRepo.Create(node); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSON409(c, "Node with this name already exists")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Failed to create node '%s'", req.Name)
		utils.JSON500(c, "Failed to create node")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Node] Created node %d (%s)", node.ID, node.Name)
	utils.JSON200(c, gin.H{
		"message": "Node created successfully",
		"id":      node.ID,
	})
}

func (ctrl *Controller) UpdateNode(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateNodeRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Node] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	repo := ctrl.repo(c)
	node, err := repo.NodeRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSON404(c, "Node not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Failed to load node %d", id)
		utils.JSON500(c, "Failed to load node")
		return
	}

	if req.Name != nil && *req.Name != node.Name {
		exists, err := repo.NodeRepo.ExistsByName(*req.Name, node.ID)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Error checking node name existence")
			utils.JSON500(c, "Error checking node name existence")
			return
		}
		if exists {
			utils.JSON409(c, "Node with this name already exists")
			return
		}
		node.Name = *req.Name
	}
	if req.Hostname != nil {
		node.Hostname = *req.Hostname
	}
	if req.Username != nil {
		node.Username = *req.Username
	}
	if req.Port != nil {
		node.Port = *req.Port
	}
	if req.Description != nil {
		node.Description = *req.Description
	}

	if err := repo.NodeRepo.Update(node); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSON409(c, "Node with this name already exists")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Failed to update node %d", id)
		utils.JSON500(c, "Failed to update node")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Node] Updated node %d", id)
	utils.JSON200(c, gin.H{"message": "Node updated successfully"})
}

func (ctrl *Controller) DeleteNode(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := ctrl.repo(c).NodeRepo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSON404(c, "Node not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Node] Failed to delete node %d", id)
		utils.JSON500(c, "Failed to delete node")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Node] Deleted node %d", id)
	utils.JSON200(c, gin.H{"message": "Node deleted successfully"})
}
