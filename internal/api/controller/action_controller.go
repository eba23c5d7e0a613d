package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/repository"
	"github.com/gin-gonic/gin"
)

// ActionInvoker runs actions for the gateway.
type ActionInvoker interface {
	InvokeWithParams(ctx context.Context, id string, params map[string]any) (*repository.Activation, error)
	ReinvokeWithParams(ctx context.Context, containerID string, params map[string]any) (*repository.Activation, error)
}

type ActionController struct {
	invoker ActionInvoker
}

func NewActionController(inv ActionInvoker) *ActionController {
	return &ActionController{invoker: inv}
}

// Invoke runs the action named by the wildcard path with the JSON body as
// parameters. An empty body means no parameters.
func (ac *ActionController) Invoke(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing action name"})
		return
	}
	params, ok := bindParams(c)
	if !ok {
		return
	}

	act, err := ac.invoker.InvokeWithParams(c.Request.Context(), id, params)
	respondActivation(c, act, err)
}

// Reinvoke posts the JSON body to /run of a running container.
func (ac *ActionController) Reinvoke(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing container id"})
		return
	}
	params, ok := bindParams(c)
	if !ok {
		return
	}

	act, err := ac.invoker.ReinvokeWithParams(c.Request.Context(), id, params)
	respondActivation(c, act, err)
}

func bindParams(c *gin.Context) (map[string]any, bool) {
	params := map[string]any{}
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parameters must be a JSON object"})
		return nil, false
	}
	return params, true
}

// respondActivation answers with the activation record. Failed activations
// are still returned so the caller sees the container and timings.
func respondActivation(c *gin.Context, act *repository.Activation, err error) {
	if err == nil {
		c.JSON(http.StatusOK, act)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.WithComponent("action_controller").Errorf("invocation failed: %v", err)
	}
	if act == nil {
		respondError(c, err)
		return
	}
	c.JSON(status, act)
}
