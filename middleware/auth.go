package middleware

import (
	"context"
	"net/http"
	"net/url"

	"restaurant-menu/apperr"
	"restaurant-menu/flash"
	"restaurant-menu/logger"
	"restaurant-menu/models"
	"restaurant-menu/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUserID = "userID"
	ctxUser   = "user"
)

// LoginPath is where anonymous requests to protected pages are sent.
const LoginPath = "/login/"

// LoadSession resolves the session cookie, when present. The user id goes
// into the gin context and the session into the request context.
func LoadSession(m *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		sess, err := m.Resolve(c.Request.Context(), token)
		if err != nil {
			if !apperr.Is(err, apperr.EUnauthorized) {
				logger.FromContext(c.Request.Context()).Error("Failed to resolve session", zap.Error(err))
			}
			c.Next()
			return
		}
		c.Set(ctxUserID, sess.UserID)
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		c.Next()
	}
}

// LoginRequired redirects anonymous callers to the login page. Page loads
// remember where they were going; form posts do not, since next is followed
// with a GET.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxUserID); !ok {
			target := LoginPath
			if m := c.Request.Method; m == http.MethodGet || m == http.MethodHead {
				target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFinder loads accounts by id.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// SuperuserRequired lets only superusers through; everyone else is sent
// back to the dashboard with a message. Must run after LoginRequired.
func SuperuserRequired(users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.FindUserByID(c.Request.Context(), GetUserID(c))
		if err != nil || !user.IsSuperuser {
			flash.Add(c, flash.Error, "You do not have permission to view that page.")
			c.Redirect(http.StatusFound, "/dashboard/")
			c.Abort()
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

// GetUserID extracts caller user ID from context. Zero means anonymous.
func GetUserID(c *gin.Context) uint {
	val, ok := c.Get(ctxUserID)
	if !ok {
		return 0
	}
	return val.(uint)
}

// GetUser returns the user loaded by SuperuserRequired.
func GetUser(c *gin.Context) *models.User {
	val, _ := c.Get(ctxUser)
	user, _ := val.(*models.User)
	return user
}
