package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/notify"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"github.com/tnqbao/gau-playbook-orchestrator/runner"
	"github.com/tnqbao/gau-playbook-orchestrator/utils"
)

// Services are the execution-side collaborators the handlers drive
type Services struct {
	Catalog    *runner.Catalog
	Dispatcher *runner.Dispatcher
	Prober     *runner.Prober
	Hub        *notify.Hub
}

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Services   Services
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, services Services) *Controller {
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Services:   services,
	}
}

// repo returns repositories bound to the request context
func (ctrl *Controller) repo(c *gin.Context) *repository.Repository {
	return ctrl.Repository.WithContext(c.Request.Context())
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.JSON400(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
