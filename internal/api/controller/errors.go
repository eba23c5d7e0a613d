package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_action/internal/action"
	"github.com/bassista/go_action/internal/container"
	"github.com/bassista/go_action/internal/invocation"
	"github.com/bassista/go_action/internal/platform"
	"github.com/bassista/go_action/internal/repository"
	"github.com/bassista/go_action/internal/runtime"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var appErr *action.ApplicationError
	switch {
	case errors.Is(err, invocation.ErrMissingCredentials),
		errors.Is(err, invocation.ErrBinaryAction),
		errors.Is(err, platform.ErrInvalidActionName),
		errors.Is(err, container.ErrNotRunning):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, platform.ErrActionNotFound),
		errors.Is(err, repository.ErrActivationNotFound),
		errors.Is(err, runtime.ErrContainerNotFound):
		return http.StatusNotFound
	case errors.As(err, &appErr):
		return http.StatusBadGateway
	case errors.Is(err, container.ErrReadinessTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
