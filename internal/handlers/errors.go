package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/service"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrCooldown):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrAlreadyAssigned), errors.Is(err, apperr.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body. Internal failures are logged
// and reported without detail.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	switch {
	case status == http.StatusUnauthorized:
		c.JSON(status, gin.H{"error": "invalid_credentials", "message": err.Error()})
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal_error", "message": "internal server error"})
	default:
		c.JSON(status, gin.H{"error": apperr.Code(err), "message": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
}
