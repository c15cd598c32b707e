package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller/dto"
	"github.com/tnqbao/gau-playbook-orchestrator/runner"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
	"gorm.io/gorm"
)

func (ctrl *Controller) ExecutePlaybooks(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ExecuteRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Execution] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	request := runner.Request{
		Playbooks: req.Playbooks,
		NodeIDs:   req.NodeIDs,
		GroupIDs:  req.GroupIDs,
	}
	switch err := request.Validate(); {
	case errors.Is(err, runner.ErrNoPlaybooks):
		utils.JSON400(c, "No playbooks specified")
		return
	case errors.Is(err, runner.ErrNoTargets):
		utils.JSON400(c, "No targets specified")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Execution] %s requested playbooks %v on nodes %v groups %v",
		utils.GetUserIDFromContext(c), req.Playbooks, req.NodeIDs, req.GroupIDs)

	id, err := ctrl.Services.Dispatcher.Dispatch(ctx, request)
	if errors.Is(err, runner.ErrQueueFull) || errors.Is(err, runner.ErrPoolClosed) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Execution] Execution %d refused: %v", id, err)
		utils.JSON503(c, "Execution queue is unavailable, try again later", gin.H{"execution_id": id})
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Execution] Failed to start execution")
		utils.JSON500(c, "Failed to start execution")
		return
	}

	utils.JSON202(c, dto.ExecuteResponseDTO{
		Message:     "Execution started",
		ExecutionID: id,
	})
}

func (ctrl *Controller) ListExecutions(c *gin.Context) {
	ctx := c.Request.Context()

	executions, err := ctrl.repo(c).ExecutionRepo.ListRecent(ctrl.Config.EnvConfig.Runner.HistoryLimit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Execution] Failed to list executions")
		utils.JSON500(c, "Failed to list executions")
		return
	}

	utils.JSON200(c, executions)
}

func (ctrl *Controller) GetExecution(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	execution, err := ctrl.repo(c).ExecutionRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSON404(c, "Execution not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Execution] Failed to load execution %d", id)
		utils.JSON500(c, "Failed to load execution")
		return
	}

	utils.JSON200(c, execution)
}
