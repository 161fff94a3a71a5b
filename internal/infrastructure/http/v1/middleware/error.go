package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"queryforge/internal/core/apperror"
	"queryforge/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check for errors
		if len(c.Errors) == 0 {
			return
		}

		// Get last error
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		// Try to extract AppError
		if appErr, ok := apperror.AsAppError(err); ok {
			// Log internal error if present
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			c.JSON(appErr.HTTPStatus, errorBody(c, appErr))
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		c.JSON(http.StatusInternalServerError,
			errorBody(c, apperror.NewInternal(nil)))
	}
}

// errorBody renders the error envelope every endpoint shares.
func errorBody(c *gin.Context, appErr *apperror.AppError) gin.H {
	body := gin.H{
		"error":     true,
		"type":      appErr.Type,
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"requestId": c.GetString("request_id"),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Value != nil {
		body["value"] = appErr.Value
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return body
}
