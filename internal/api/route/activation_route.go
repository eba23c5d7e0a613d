package route

import (
	"github.com/bassista/go_action/internal/api/controller"
	"github.com/bassista/go_action/internal/repository"
	"github.com/gin-gonic/gin"
)

func NewActivationRouter(group *gin.RouterGroup, history repository.HistoryReader) {
	ac := controller.NewActivationController(history)

	group.GET("activations", ac.List)
	group.GET("activations/:id", ac.Get)
}
