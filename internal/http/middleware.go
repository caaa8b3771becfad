package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-service/internal/auth"
	"user-service/internal/domain"
)

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
			entry = entry.WithFields(logrus.Fields{
				"principal":    p.Username(),
				"capabilities": p.Capabilities.List(),
			})
		}
		entry.Debug("request")
	}
}

// authenticate runs the gate and stores the principal in the request context.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := h.gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			h.logger.WithError(err).WithField("path", c.Request.URL.Path).Debug("authentication rejected")
			abortWithMessage(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize applies the route policy. Anonymous callers get 401 and
// authenticated ones 403.
func (h *Handler) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := auth.PrincipalFromContext(c.Request.Context())
		decision := h.policy.Authorize(c.Request.Method, c.Request.URL.Path, principal)
		if decision.Allowed {
			c.Next()
			return
		}

		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"reason": decision.Reason,
		}).Debug("request denied")
		if principal == nil {
			abortWithMessage(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		abortWithMessage(c, http.StatusForbidden, domain.ErrForbidden.Error())
	}
}
