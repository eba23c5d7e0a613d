package controller

import (
	"net/http"
	"strconv"

	"github.com/bassista/go_action/internal/repository"
	"github.com/gin-gonic/gin"
)

// DefaultListLimit is the number of activations returned without ?limit.
const DefaultListLimit = 30

type ActivationController struct {
	history repository.HistoryReader
}

func NewActivationController(history repository.HistoryReader) *ActivationController {
	return &ActivationController{history: history}
}

// List returns the newest activations first. ?limit=0 returns all of them.
func (ac *ActivationController) List(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	activations, err := ac.history.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if activations == nil {
		activations = []repository.Activation{}
	}
	c.JSON(http.StatusOK, activations)
}

func (ac *ActivationController) Get(c *gin.Context) {
	act, err := ac.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}
