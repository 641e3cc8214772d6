package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/errors"
)

// SentryMiddleware attaches a per-request Sentry hub. Panics are re-raised so
// RecoveryWithSentry can answer the request.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorHandler reports unexpected errors attached to the gin context and
// leaves a breadcrumb per request.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		errors.AddBreadcrumb("http", fmt.Sprintf("%s %s - %d", c.Request.Method, c.Request.URL.Path, status),
			map[string]interface{}{
				"status_code": status,
				"duration_ms": time.Since(start).Milliseconds(),
			})

		for _, ginErr := range c.Errors {
			if errors.ShouldReportError(ginErr.Err) {
				captureError(c, ginErr.Err, status)
			}
		}
	}
}

// RecoveryWithSentry turns a panic into a 500 and reports it.
func RecoveryWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				hub := hubFor(c)
				hub.Scope().SetRequest(c.Request)
				hub.Scope().SetContext("panic", map[string]interface{}{
					"value":      fmt.Sprintf("%v", rec),
					"stacktrace": string(debug.Stack()),
				})
				hub.RecoverWithContext(c.Request.Context(), rec)

				c.AbortWithStatusJSON(http.StatusInternalServerError, common.Response{
					Success: false,
					Error: &common.ErrorInfo{
						Code:    http.StatusInternalServerError,
						Message: common.MsgGeneric,
					},
				})
			}
		}()

		c.Next()
	}
}

func hubFor(c *gin.Context) *sentry.Hub {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

func captureError(c *gin.Context, err error, status int) {
	hub := hubFor(c)
	hub.Scope().SetRequest(c.Request)
	hub.Scope().SetLevel(sentryLevel(status))
	hub.Scope().SetTag("http.method", c.Request.Method)
	hub.Scope().SetTag("http.status_code", fmt.Sprintf("%d", status))
	hub.Scope().SetTag("endpoint", c.FullPath())
	if correlationID := GetCorrelationID(c); correlationID != "" {
		hub.Scope().SetTag("correlation_id", correlationID)
	}
	hub.CaptureException(err)
}

func sentryLevel(status int) sentry.Level {
	switch {
	case status >= 500:
		return sentry.LevelError
	case status == http.StatusTooManyRequests:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
