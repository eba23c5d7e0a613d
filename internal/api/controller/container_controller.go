package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/runtime"
	"github.com/gin-gonic/gin"
)

// Pruner removes leftover action containers.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// ContainerController exposes the containers this tool created.
type ContainerController struct {
	runtime runtime.ContainerRuntime
	pruner  Pruner
}

func NewContainerController(rt runtime.ContainerRuntime, pruner Pruner) *ContainerController {
	return &ContainerController{runtime: rt, pruner: pruner}
}

// List returns the managed containers, running or not.
func (cc *ContainerController) List(c *gin.Context) {
	containers, err := cc.runtime.List(c.Request.Context(), map[string]string{runtime.LabelManaged: "true"})
	if err != nil {
		logger.WithComponent("container_controller").Errorf("failed to list containers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list containers"})
		return
	}
	if containers == nil {
		containers = []runtime.ContainerSummary{}
	}
	c.JSON(http.StatusOK, containers)
}

// Prune removes stopped and expired managed containers now.
func (cc *ContainerController) Prune(c *gin.Context) {
	removed, err := cc.pruner.Prune(c.Request.Context())
	if err != nil {
		logger.WithComponent("container_controller").Errorf("prune failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "removed": removed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
