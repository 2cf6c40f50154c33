package handlers

import (
	"net/http"
	"strings"

	"restaurant-menu/apperr"
	"restaurant-menu/flash"
	"restaurant-menu/middleware"
	"restaurant-menu/store"
	"restaurant-menu/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
)

// Profile shows and saves the account details and the restaurant they are
// linked to, creating the restaurant when the user has none.
func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	if c.Request.Method == http.MethodGet {
		user, err := h.store.FindUserByID(ctx, userID)
		if err != nil {
			h.fail(c, err)
			return
		}
		restaurant, err := h.store.RestaurantForUser(ctx, userID)
		if err != nil && !apperr.Is(err, apperr.ENotFound) {
			h.fail(c, err)
			return
		}
		form := validation.NewProfileForm(user, restaurant)
		h.renderProfile(c, http.StatusOK, &form, nil)
		return
	}

	var form validation.ProfileForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.fail(c, apperr.Internal("handlers.Profile", err))
		return
	}
	if err := form.Validate(ctx, h.store, userID, h.opts.ExemptOwnEmail); err != nil {
		var errs *validation.Errors
		if !errors.As(err, &errs) {
			h.fail(c, err)
			return
		}
		h.renderProfile(c, http.StatusUnprocessableEntity, &form, errs)
		return
	}

	_, err := h.store.SaveProfile(ctx, userID, store.Profile{
		FirstName:         strings.TrimSpace(form.FirstName),
		LastName:          strings.TrimSpace(form.LastName),
		Email:             strings.TrimSpace(form.Email),
		RestaurantName:    form.RestaurantName,
		RestaurantAddress: form.RestaurantAddress,
		RestaurantPhone:   form.RestaurantPhone,
		RestaurantEmail:   form.RestaurantEmail,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	flash.Add(c, flash.Success, "Profile updated.")
	h.redirect(c, "/profile/?updated=1")
}

func (h *Handler) renderProfile(c *gin.Context, status int, form *validation.ProfileForm, errs *validation.Errors) {
	h.render(c, status, "profile.html", gin.H{
		"Title":   "Profile",
		"Form":    form,
		"Errors":  errs,
		"Updated": c.Query("updated") == "1",
	})
}

