package route

import (
	"net/http"

	"github.com/bassista/go_action/internal/api/middleware"
	"github.com/bassista/go_action/internal/app"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})
	r.GET("/metrics", gin.WrapH(appCtx.Metrics.Handler()))

	publicRouter := r.Group("")

	// Invocations run up to the readiness wait plus the action itself.
	timeout := appCtx.Config.Server.RequestTimeout

	NewActionRouter(timeout, publicRouter, appCtx.Invoker)
	NewActivationRouter(publicRouter, appCtx.History())
	NewContainerRouter(timeout, publicRouter, appCtx)
	NewConfigurationRouter(publicRouter, appCtx.Config)
}
