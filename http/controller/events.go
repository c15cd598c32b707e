package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
)

// Events upgrades to the websocket push channel
func (ctrl *Controller) Events(c *gin.Context) {
	if err := ctrl.Services.Hub.ServeWS(c.Writer, c.Request); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(c.Request.Context(), "[Events] %v", err)
	}
}

func (ctrl *Controller) Health(c *gin.Context) {
	utils.JSON200(c, gin.H{
		"status":      "ok",
		"queue_depth": ctrl.Services.Dispatcher.QueueDepth(),
		"ws_clients":  ctrl.Services.Hub.ClientCount(),
	})
}
