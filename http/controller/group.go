package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller/dto"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
	"gorm.io/gorm"
)

func (ctrl *Controller) ListGroups(c *gin.Context) {
	ctx := c.Request.Context()

	groups, err := ctrl.repo(c).GroupRepo.List()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Failed to list groups")
		utils.JSON500(c, "Failed to list groups")
		return
	}

	response := make([]dto.GroupResponseDTO, 0, len(groups))
	for _, group := range groups {
		response = append(response, dto.NewGroupResponse(group))
	}
	utils.JSON200(c, response)
}

func (ctrl *Controller) CreateGroup(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateGroupRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Group] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	repo := ctrl.repo(c)
	exists, err := repo.GroupRepo.ExistsByName(req.Name, 0)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Error checking group name existence")
		utils.JSON500(c, "Error checking group name existence")
		return
	}
	if exists {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Group] Group with name '%s' already exists", req.Name)
		utils.JSON409(c, "Group with this name already exists")
		return
	}

	group := &entity.NodeGroup{Name: req.Name, Description: req.Description}
	if err := repo.GroupRepo.Create(group, req.NodeIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSON409(c, "Group with this name already exists")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Failed to create group '%s'", req.Name)
		utils.JSON500(c, "Failed to create group")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Group] Created group %d (%s) with %d nodes", group.ID, group.Name, len(group.Nodes))
	utils.JSON200(c, gin.H{
		"message": "Group created successfully",
		"id":      group.ID,
	})
}

func (ctrl *Controller) UpdateGroup(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateGroupRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Group] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	repo := ctrl.repo(c)
	group, err := repo.GroupRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSON404(c, "Group not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Failed to load group %d", id)
		utils.JSON500(c, "Failed to load group")
		return
	}

	if req.Name != nil && *req.Name != group.Name {
		exists, err := repo.GroupRepo.ExistsByName(*req.Name, group.ID)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Error checking group name existence")
			utils.JSON500(c, "Error checking group name existence")
			return
		}
		if exists {
			utils.JSON409(c, "Group with this name already exists")
			return
		}
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := repo.GroupRepo.Update(group, req.NodeIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSON409(c, "Group with this name already exists")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Failed to update group %d", id)
		utils.JSON500(c, "Failed to update group")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Group] Updated group %d", id)
	utils.JSON200(c, gin.H{"message": "Group updated successfully"})
}

func (ctrl *Controller) DeleteGroup(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := ctrl.repo(c).GroupRepo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSON404(c, "Group not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Group] Failed to delete group %d", id)
		utils.JSON500(c, "Failed to delete group")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Group] Deleted group %d", id)
	utils.JSON200(c, gin.H{"message": "Group deleted successfully"})
}
