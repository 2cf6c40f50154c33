package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/flash"
	"restaurant-menu/logger"
	"restaurant-menu/models"
	"restaurant-menu/statemachine"
	"restaurant-menu/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgBadCredentials = "Invalid username or password."
	msgThrottled      = "Too many login attempts. Try again shortly."
	msgFixErrors      = "Please correct the errors below."
)

// Signup shows and processes the account creation form. A successful
// signup creates the user together with its restaurant and logs it in.
func (h *Handler) Signup(c *gin.Context) {
	var form validation.SignupForm
	if c.Request.Method == http.MethodGet {
		h.renderSignup(c, http.StatusOK, &form, nil)
		return
	}

	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderSignup(c, http.StatusBadRequest, &form, nil)
		return
	}
	ctx := c.Request.Context()
	if err := form.Validate(ctx, h.store); err != nil {
		var errs *validation.Errors
		if !errors.As(err, &errs) {
			h.fail(c, err)
			return
		}
		flash.Add(c, flash.Error, msgFixErrors)
		h.renderSignup(c, http.StatusUnprocessableEntity, &form, errs)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password1), h.opts.BcryptCost)
	if err != nil {
		h.fail(c, apperr.Internal("handlers.Signup", errors.Wrap(err, "failed to hash password")))
		return
	}
	user := &models.User{
		Username:     strings.TrimSpace(form.Username),
		Email:        strings.TrimSpace(form.Email),
		PasswordHash: string(hash),
	}
	restaurant, err := h.store.CreateUserWithRestaurant(ctx, user, strings.TrimSpace(form.RestaurantName))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.startSession(c, user.ID, statemachine.EventSignup); err != nil {
		h.fail(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.Signups.Inc()
	}
	logger.FromContext(ctx).Info("Account created",
		zap.Uint("user_id", user.ID),
		zap.Uint("restaurant_id", restaurant.ID))

	flash.Add(c, flash.Success, "Account created successfully")
	h.redirect(c, "/dashboard/")
}

func (h *Handler) renderSignup(c *gin.Context, status int, form *validation.SignupForm, errs *validation.Errors) {
	h.render(c, status, "signup.html", gin.H{
		"Title":  "Sign up",
		"Form":   form,
		"Errors": errs,
	})
}

// Login shows and processes the login form.
func (h *Handler) Login(c *gin.Context) {
	var form validation.LoginForm
	if c.Request.Method == http.MethodGet {
		form.Next = c.Query("next")
		h.renderLogin(c, http.StatusOK, &form)
		return
	}

	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, &form)
		return
	}
	ctx := c.Request.Context()
	user, err := h.store.FindUserByUsername(ctx, strings.TrimSpace(form.Username))
	if err != nil && !apperr.Is(err, apperr.ENotFound) {
		h.fail(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		h.countLogin("failure")
		logger.FromContext(ctx).Info("Login failed", zap.String("username", form.Username))
		flash.Add(c, flash.Error, msgBadCredentials)
		h.renderLogin(c, http.StatusUnauthorized, &form)
		return
	}

	if err := h.store.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.startSession(c, user.ID, statemachine.EventLogin); err != nil {
		h.fail(c, err)
		return
	}
	h.countLogin("success")
	h.redirect(c, safeNext(form.Next, "/dashboard/"))
}

// LoginThrottled answers login attempts rejected by the rate limiter.
func (h *Handler) LoginThrottled(c *gin.Context) {
	h.countLogin("throttled")
	_ = c.Error(&apperr.Error{Code: apperr.ETooManyRequests, Op: "handlers.Login", Msg: msgThrottled})
	form := validation.LoginForm{Username: c.PostForm("username"), Next: c.PostForm("next")}
	flash.Add(c, flash.Error, msgThrottled)
	h.renderLogin(c, http.StatusTooManyRequests, &form)
}

func (h *Handler) renderLogin(c *gin.Context, status int, form *validation.LoginForm) {
	h.render(c, status, "login.html", gin.H{
		"Title": "Log in",
		"Form":  form,
		"Next":  form.Next,
	})
}

func (h *Handler) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(result).Inc()
	}
}

// Logout ends the session, whatever state it is in.
func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.opts.CookieName)
	if err := h.sessions.End(c.Request.Context(), token); err != nil {
		logger.FromContext(c.Request.Context()).Error("Failed to end session", zap.Error(err))
	}
	h.clearSession(c)
	h.redirect(c, "/login/")
}

// safeNext returns next when it is a path on this site, fallback otherwise.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
