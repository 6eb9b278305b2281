package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

// Error codes returned in APIError.Code besides the rejection reasons.
const (
	codeInvalidRequest    = "invalid_request"
	codeInvalidInput      = "invalid_input"
	codeNotFound          = "not_found"
	codeConflict          = "conflict"
	codeInvalidTransition = "invalid_status_transition"
	codeUnprocessable     = "unprocessable"
	codeInternal          = "internal_error"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a successful JSON response.
func writeJSON(c *gin.Context, status int, data any) {
	c.JSON(status, JSONResponse{
		Success:   true,
		Data:      data,
		RequestID: requestIDFrom(c),
	})
}

// writeError writes an error response and aborts the handler chain.
func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, JSONResponse{
		Error:     &APIError{Code: code, Message: message},
		RequestID: requestIDFrom(c),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// respondError maps a command or query error to an HTTP status. Eligibility
// rejections carry their reason as the code. Unclassified errors are logged
// and reported without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
		writeError(c, status, code, "an unexpected error occurred")
		return
	}
	writeError(c, status, code, messageOf(err))
}

func classify(err error) (int, string) {
	reason := string(application.ReasonOf(err))

	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, orCode(reason, codeNotFound)
	case errors.Is(err, shared.ErrStateTransition):
		return http.StatusConflict, codeInvalidTransition
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, orCode(reason, codeConflict)
	case shared.IsRejection(err):
		return http.StatusUnprocessableEntity, orCode(reason, codeUnprocessable)
	case shared.IsValidation(err):
		return http.StatusBadRequest, codeInvalidInput
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func orCode(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

// messageOf prefers the innermost domain message over the wrapped chain.
func messageOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// pathID parses a positive int64 path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, codeInvalidInput, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return false
	}
	return true
}
