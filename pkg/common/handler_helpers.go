package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"go.uber.org/zap"
)

// HandleServiceError renders err and reports whether a response was sent.
//
// Usage:
//
//	ride, err := h.session.StartRide(ctx, scooterID)
//	if HandleServiceError(c, err, MsgStartFailed) {
//	    return
//	}
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		AppErrorResponse(c, appErr)
		return true
	}

	logger.ErrorContext(c.Request.Context(), fallbackMessage,
		zap.Error(err),
	)

	ErrorResponse(c, http.StatusInternalServerError, fallbackMessage)
	return true
}

// ValidateNotEmpty checks if a string value is not empty and sends error response if it is.
// Returns true if valid, false if empty (response already sent).
func ValidateNotEmpty(c *gin.Context, value, fieldName string) bool {
	if value == "" {
		AppErrorResponse(c, NewInvalidInputError(fieldName+" is required"))
		return false
	}
	return true
}
