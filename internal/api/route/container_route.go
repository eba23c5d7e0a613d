package route

import (
	"time"

	"github.com/bassista/go_action/internal/api/controller"
	"github.com/bassista/go_action/internal/api/middleware"
	"github.com/bassista/go_action/internal/app"
	"github.com/gin-gonic/gin"
)

func NewContainerRouter(timeout time.Duration, group *gin.RouterGroup, appCtx *app.App) {
	cc := controller.NewContainerController(appCtx.Runtime, appCtx)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("containers", timeoutMiddleware, cc.List)
	group.POST("containers/prune", timeoutMiddleware, cc.Prune)
}
