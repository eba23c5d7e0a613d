package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// HoneybadgerMiddleware reports gateway failures to Honeybadger when
// HONEYBADGER_API_KEY is set. Panics are reported and re-raised for
// gin.Recovery. Failures of the action itself (502) are the action author's
// concern and are not reported.
func HoneybadgerMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})
	log.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				honeybadger.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.FullPath()),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		tag, ok := reportTag(status)
		if !ok {
			return
		}
		// FullPath keeps action names out of the fingerprint.
		msg := fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.FullPath())
		if tag == "5XX" {
			honeybadger.Notify("Error: "+msg, c.Request, honeybadger.Tags{tag, "http"})
		} else {
			honeybadger.Notify("Warning: "+msg, honeybadger.Tags{tag, "http"})
		}
		log.Warnf("Honeybadger reported %s", msg)
	}
}

// reportTag classifies a response status for reporting.
func reportTag(status int) (string, bool) {
	switch {
	case status == http.StatusNotFound, status == http.StatusBadGateway:
		return "", false
	case status == http.StatusGatewayTimeout:
		return "timeout", true
	case status >= 500:
		return "5XX", true
	case status >= 400:
		return "4XX", true
	default:
		return "", false
	}
}
