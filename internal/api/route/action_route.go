package route

import (
	"time"

	"github.com/bassista/go_action/internal/api/controller"
	"github.com/bassista/go_action/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

func NewActionRouter(timeout time.Duration, group *gin.RouterGroup, inv controller.ActionInvoker) {
	ac := controller.NewActionController(inv)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.POST("actions/*id", timeoutMiddleware, ac.Invoke)
	group.POST("containers/:id/run", timeoutMiddleware, ac.Reinvoke)
}
