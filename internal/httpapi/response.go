// Package httpapi implements the REST surface over internal/collab and
// internal/activity (SPEC_FULL §6.5): every response is {success, data?,
// error?}, grounded on internal/handlers/collaboration.go's gin.H
// response shape and internal/api/handlers.go's RegisterRoutes(group)
// per-handler convention.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/cathalhughes/canvas-collab/internal/errors"
	"github.com/cathalhughes/canvas-collab/internal/validator"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	appErr, isApp := err.(*apperrors.AppError)
	if !isApp {
		appErr = apperrors.InternalServer(err.Error())
	}
	c.JSON(appErr.StatusCode, envelope{Success: false, Error: appErr.ToResponse()})
}

func badRequest(c *gin.Context, message string) {
	fail(c, apperrors.InvalidInput(message))
}

// userPayload is the caller-supplied identity every mutating endpoint
// requires — authentication is out of scope (spec.md §1 Non-goals), so
// callers arrive with an already-established userId/user (SPEC_FULL §6).
type userPayload struct {
	UserID string `json:"userId" binding:"required"`
	User   struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
	} `json:"user" binding:"required"`
}

func badRequestOnBindErr(c *gin.Context, err error) bool {
	if err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return true
	}
	return false
}

// badRequestOnValidateErr enforces struct-tag bounds (coordinate ranges,
// duration limits) beyond c.ShouldBindJSON's plain presence checks,
// reporting the first offending field in the standard envelope.
func badRequestOnValidateErr(c *gin.Context, req interface{}) bool {
	if fieldErrs := validator.ValidateRequest(req); fieldErrs != nil {
		for field, msg := range fieldErrs {
			badRequest(c, field+": "+msg)
			return true
		}
	}
	return false
}

// statusOf maps a successful mutation to the HTTP status gin should send,
// mirroring the teacher's 201-on-create / 200-otherwise convention.
func statusOf(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
