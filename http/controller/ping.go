package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller/dto"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
)

// PingNodes probes the requested nodes synchronously
func (ctrl *Controller) PingNodes(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PingRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Ping] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}
	if len(req.NodeIDs) == 0 {
		utils.JSON400(c, "No nodes specified")
		return
	}

	results, err := ctrl.Services.Prober.Probe(ctx, req.NodeIDs)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Ping] Failed to probe nodes %v", req.NodeIDs)
		utils.JSON500(c, "Failed to ping nodes")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Ping] Probed %d of %d requested nodes", len(results), len(req.NodeIDs))
	utils.JSON200(c, results)
}
