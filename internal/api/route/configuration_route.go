package route

import (
	"github.com/bassista/go_action/internal/api/controller"
	"github.com/bassista/go_action/internal/config"
	"github.com/gin-gonic/gin"
)

func NewConfigurationRouter(group *gin.RouterGroup, cfg *config.Config) {
	cc := controller.NewConfigurationController(cfg)

	group.GET("configuration", cc.GetConfiguration)
}
