// Package errors — Gin middleware converting AppError into a consistent
// JSON response and recovering from panics.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cathalhughes/canvas-collab/internal/logger"
)

// ErrorHandler handles errors consistently across REST handlers.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		if appErr, ok := err.Err.(*AppError); ok {
			log := logger.HTTP()
			if appErr.StatusCode >= 500 {
				log.Error().Str("code", appErr.Code).Str("details", appErr.Details).Msg(appErr.Message)
			} else {
				log.Warn().Str("code", appErr.Code).Msg(appErr.Message)
			}
			c.JSON(appErr.StatusCode, appErr.ToResponse())
			return
		}

		logger.HTTP().Error().Err(err.Err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   CodeInternalServer,
			Message: "an unexpected error occurred",
			Code:    CodeInternalServer,
		})
	}
}

// Recovery recovers from panics in REST handlers.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.HTTP().Error().Interface("panic", r).Msg("recovered from panic")
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   CodeInternalServer,
					Message: "an unexpected error occurred",
					Code:    CodeInternalServer,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HandleError is a helper to respond with an error from a handler.
func HandleError(c *gin.Context, err error) {
	if appErr, ok := err.(*AppError); ok {
		c.Error(appErr)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	internalErr := InternalServer(err.Error())
	c.Error(internalErr)
	c.JSON(internalErr.StatusCode, internalErr.ToResponse())
}

// AbortWithError aborts the request with a structured error response.
func AbortWithError(c *gin.Context, err *AppError) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}
