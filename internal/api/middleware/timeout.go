package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestTimeout bounds the request context. Handlers are not interrupted:
// the invoker honours ctx and tears its container down on its own.
// A handler that gives up without answering gets a 504.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		logger.WithComponent("timeout").Warnf("%s %s exceeded %s", c.Request.Method, c.Request.URL.Path, d)
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error":   "request timeout",
				"timeout": d.String(),
			})
		}
	}
}
