package middleware

import (
	"crypto/subtle"
	"net/http"

	"restaurant-menu/apperr"
	"restaurant-menu/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CSRFCookie holds the token every form posts back as CSRFField.
	CSRFCookie = "csrftoken"
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"

	ctxCSRF = "csrfToken"

	msgCSRF = "CSRF verification failed. Request aborted."
)

// CSRF issues a per-browser token cookie and rejects unsafe requests whose
// form field (or header) does not repeat it.
func CSRF(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookie)
		if err != nil || token == "" {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFCookie, token, 365*24*60*60, "/", "", secure, true)
			if !safeMethod(c.Request.Method) {
				rejectCSRF(c, "missing cookie")
				return
			}
		}
		c.Set(ctxCSRF, token)

		if safeMethod(c.Request.Method) {
			c.Next()
			return
		}
		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFField)
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			rejectCSRF(c, "token mismatch")
			return
		}
		c.Next()
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func rejectCSRF(c *gin.Context, reason string) {
	_ = c.Error(apperr.Forbidden("middleware.CSRF", msgCSRF))
	logger.FromContext(c.Request.Context()).Warn("Rejected cross-site request",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", reason))
	c.String(http.StatusForbidden, msgCSRF)
	c.Abort()
}

// CSRFToken returns the token forms must post back.
func CSRFToken(c *gin.Context) string {
	return c.GetString(ctxCSRF)
}
