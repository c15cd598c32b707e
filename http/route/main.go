package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller"
	middlewares "github.com/tnqbao/gau-playbook-orchestrator/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()

	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	apiRoutes := r.Group("/api")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		playbookRoutes := apiRoutes.Group("/playbooks")
		{
			playbookRoutes.GET("", ctrl.ListPlaybooks)
			playbookRoutes.GET("/:name", ctrl.GetPlaybookContent)
		}

		nodeRoutes := apiRoutes.Group("/nodes")
		{
			nodeRoutes.GET("", ctrl.ListNodes)
			nodeRoutes.POST("", ctrl.CreateNode)
			nodeRoutes.PUT("/:id", ctrl.UpdateNode)
			nodeRoutes.DELETE("/:id", ctrl.DeleteNode)
		}

		groupRoutes := apiRoutes.Group("/groups")
		{
			groupRoutes.GET("", ctrl.ListGroups)
			groupRoutes.POST("", ctrl.CreateGroup)
			groupRoutes.PUT("/:id", ctrl.UpdateGroup)
			groupRoutes.DELETE("/:id", ctrl.DeleteGroup)
		}

		apiRoutes.POST("/execute", ctrl.ExecutePlaybooks)
		apiRoutes.POST("/ping", ctrl.PingNodes)

		executionRoutes := apiRoutes.Group("/executions")
		{
			executionRoutes.GET("", ctrl.ListExecutions)
			executionRoutes.GET("/:id", ctrl.GetExecution)
		}

		apiRoutes.GET("/ws", ctrl.Events)
	}
	return r
}
