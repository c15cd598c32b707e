package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/runner"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
)

func (ctrl *Controller) ListPlaybooks(c *gin.Context) {
	ctx := c.Request.Context()

	playbooks, err := ctrl.Services.Catalog.List()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Playbook] Failed to list playbooks")
		utils.JSON500(c, "Failed to list playbooks")
		return
	}

	utils.JSON200(c, playbooks)
}

func (ctrl *Controller) GetPlaybookContent(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	content, err := ctrl.Services.Catalog.Read(name)
	if errors.Is(err, runner.ErrPlaybookNotFound) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Playbook] Playbook '%s' not found", name)
		utils.JSON404(c, "Playbook not found")
		return
	}
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Playbook] Failed to read playbook '%s'", name)
		utils.JSON500(c, "Failed to read playbook")
		return
	}

	utils.JSON200(c, gin.H{"content": content})
}
