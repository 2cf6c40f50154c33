// Package handlers implements the HTML pages of the menu manager.
package handlers

import (
	"net/http"
	"strconv"

	"restaurant-menu/apperr"
	"restaurant-menu/flash"
	"restaurant-menu/logger"
	"restaurant-menu/middleware"
	"restaurant-menu/session"
	"restaurant-menu/statemachine"
	"restaurant-menu/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options are the settings handlers need from the configuration.
type Options struct {
	CookieName     string
	SecureCookie   bool
	BcryptCost     int
	ExemptOwnEmail bool
}

// Handler holds the dependencies shared by every page.
type Handler struct {
	store    *store.Store
	sessions *session.Manager
	metrics  *middleware.Metrics
	opts     Options
}

// New returns a Handler. metrics may be nil.
func New(st *store.Store, sessions *session.Manager, metrics *middleware.Metrics, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}
	return &Handler{
		store:    st,
		sessions: sessions,
		metrics:  metrics,
		opts:     opts,
	}
}

// Store exposes the persistence layer, e.g. for SuperuserRequired.
func (h *Handler) Store() *store.Store {
	return h.store
}

// render executes the named page with the flash messages, the CSRF token
// and the caller's identity added to data.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	data["Messages"] = flash.Pop(c)
	data["CSRFToken"] = middleware.CSRFToken(c)
	if id := middleware.GetUserID(c); id != 0 {
		data["UserID"] = id
		if user, err := h.store.FindUserByID(c.Request.Context(), id); err == nil {
			data["Username"] = user.Username
			data["IsSuperuser"] = user.IsSuperuser
		}
	}
	c.HTML(status, name, data)
}

func (h *Handler) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// fail renders the generic error page for err and logs it.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("code", apperr.ErrorCode(err)),
		zap.Error(err))
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title": "Error",
		"Error": apperr.ErrorMessage(err),
	})
}

// startSession authenticates userID, replacing any session the request
// already carries, and sets the session cookie.
func (h *Handler) startSession(c *gin.Context, userID uint, event statemachine.Event) error {
	prev, _ := c.Cookie(h.opts.CookieName)
	_, token, err := h.sessions.Start(c.Request.Context(), prev, userID, event)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, token, int(h.sessions.TTL().Seconds()), "/", "", h.opts.SecureCookie, true)
	return nil
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/", "", h.opts.SecureCookie, true)
}

// Health reports that the server is up and its database reachable.
func (h *Handler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := h.store.DB().DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "Restaurant Menu Manager",
		"version": "1.0.0",
	})
}

// SessionStates returns the session state machine for informational purposes.
func (h *Handler) SessionStates(c *gin.Context) {
	transitions := statemachine.GetAllTransitions()
	info := make([]gin.H, 0, len(transitions))
	for _, t := range transitions {
		info = append(info, gin.H{"from": t.From, "to": t.To, "event": t.Event})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine": info,
		"description":   "Browser session lifecycle",
	})
}

func (h *Handler) count(op string) {
	if h.metrics != nil {
		h.metrics.MenuChanges.WithLabelValues(op).Inc()
	}
}

// parseID reads a positive numeric path parameter. Anything else reports
// false and is treated as an unknown record.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
