package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"user-service/internal/auth"
	"user-service/internal/domain"
)

const (
	msgUnauthorized   = "full authentication is required to access this resource"
	msgInvalidToken   = "invalid or expired token"
	msgUnexpected     = "unexpected error"
	msgInvalidPayload = "malformed request body"
)

// writeError maps service errors onto the fixed status table. Anything
// unrecognised is logged and answered generically.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
			Errors: verr.Fields,
			Status: http.StatusBadRequest,
		})
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
		abortWithMessage(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		abortWithMessage(c, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		abortWithMessage(c, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		abortWithMessage(c, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, domain.ErrForbidden):
		abortWithMessage(c, http.StatusForbidden, domain.ErrForbidden.Error())
	default:
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("unexpected error")
		abortWithMessage(c, http.StatusBadRequest, msgUnexpected)
	}
}

func (h *Handler) badBody(c *gin.Context, err error) {
	h.logger.WithError(err).Debug("bind request body")
	abortWithMessage(c, http.StatusBadRequest, msgInvalidPayload)
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Status: status})
}
