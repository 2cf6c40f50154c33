package handlers

import (
	"net/http"
	"strconv"

	"restaurant-menu/apperr"
	"restaurant-menu/flash"
	"restaurant-menu/logger"
	"restaurant-menu/middleware"
	"restaurant-menu/models"
	"restaurant-menu/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ownRestaurant loads the caller's restaurant. When there is none the
// caller is sent to signup and ok is false.
func (h *Handler) ownRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	restaurant, err := h.store.RestaurantForUser(c.Request.Context(), middleware.GetUserID(c))
	switch {
	case apperr.Is(err, apperr.ENotFound):
		flash.Add(c, flash.Error, apperr.ErrorMessage(err))
		h.redirect(c, "/signup/")
		return nil, false
	case err != nil:
		h.fail(c, err)
		return nil, false
	}
	return restaurant, true
}

// bindFoodItem reads and validates a submitted food item form. errs is
// non-nil when the submission is rejected; err reports anything else.
func bindFoodItem(c *gin.Context) (form validation.FoodItemForm, errs *validation.Errors, err error) {
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		return form, nil, apperr.Internal("handlers.bindFoodItem", err)
	}
	if err := form.Validate(c.Request.Context()); err != nil {
		if errors.As(err, &errs) {
			return form, errs, nil
		}
		return form, nil, err
	}
	return form, nil, nil
}

// Dashboard lists the caller's menu next to a form adding to it.
func (h *Handler) Dashboard(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	form := validation.FoodItemForm{Available: "on"}
	status := http.StatusOK
	var errs *validation.Errors
	if c.Request.Method == http.MethodPost {
		var err error
		form, errs, err = bindFoodItem(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		if errs == nil {
			h.createFoodItem(c, restaurant, &form)
			return
		}
		status = http.StatusUnprocessableEntity
	}

	items, err := h.store.ListFoodItems(ctx, restaurant.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, status, "dashboard.html", gin.H{
		"Title":      "Dashboard",
		"Restaurant": restaurant,
		"Items":      items,
		"Form":       &form,
		"Errors":     errs,
	})
}

// AddFood is the standalone item creation page.
func (h *Handler) AddFood(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}

	form := validation.FoodItemForm{Available: "on"}
	status := http.StatusOK
	var errs *validation.Errors
	if c.Request.Method == http.MethodPost {
		var err error
		form, errs, err = bindFoodItem(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		if errs == nil {
			h.createFoodItem(c, restaurant, &form)
			return
		}
		status = http.StatusUnprocessableEntity
	}
	h.renderFoodForm(c, status, "Add food item", "/add-food/", &form, errs)
}

// createFoodItem stores a validated form as a new item of restaurant.
func (h *Handler) createFoodItem(c *gin.Context, restaurant *models.Restaurant, form *validation.FoodItemForm) {
	var item models.FoodItem
	form.Apply(&item)
	if err := h.store.CreateFoodItem(c.Request.Context(), restaurant.ID, &item); err != nil {
		h.fail(c, err)
		return
	}
	h.count("create")
	flash.Add(c, flash.Success, "Food item added successfully.")
	h.redirect(c, "/dashboard/")
}

// EditFood shows and applies the edit form of one of the caller's items.
func (h *Handler) EditFood(c *gin.Context) {
	item, ok := h.ownedFoodItem(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodGet {
		form := validation.NewFoodItemForm(item)
		h.renderFoodForm(c, http.StatusOK, "Edit food item", editPath(item), &form, nil)
		return
	}

	form, errs, err := bindFoodItem(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if errs != nil {
		h.renderFoodForm(c, http.StatusUnprocessableEntity, "Edit food item", editPath(item), &form, errs)
		return
	}
	form.Apply(item)
	if err := h.store.UpdateFoodItem(c.Request.Context(), item); err != nil {
		h.fail(c, err)
		return
	}
	h.count("update")
	flash.Add(c, flash.Success, "Food item updated.")
	h.redirect(c, "/dashboard/")
}

// DeleteFood removes one of the caller's items.
func (h *Handler) DeleteFood(c *gin.Context) {
	item, ok := h.ownedFoodItem(c)
	if !ok {
		return
	}
	if err := h.store.DeleteFoodItem(c.Request.Context(), item); err != nil {
		h.fail(c, err)
		return
	}
	h.count("delete")
	flash.Add(c, flash.Success, "Food item deleted.")
	h.redirect(c, "/dashboard/")
}

// ownedFoodItem loads the item named by the id parameter and checks that
// the caller owns it. On failure the caller is redirected to the dashboard
// with a message and ok is false.
func (h *Handler) ownedFoodItem(c *gin.Context) (*models.FoodItem, bool) {
	userID := middleware.GetUserID(c)
	id, valid := parseID(c, "id")
	if !valid {
		flash.Add(c, flash.Error, "Food item not found.")
		h.redirect(c, "/dashboard/")
		return nil, false
	}

	item, err := h.store.FoodItemForOwner(c.Request.Context(), id, userID)
	switch apperr.ErrorCode(err) {
	case "":
		return item, true
	case apperr.EForbidden:
		if h.metrics != nil {
			h.metrics.Denials.Inc()
		}
		logger.FromContext(c.Request.Context()).Warn("Food item access denied",
			zap.Uint("user_id", userID),
			zap.Uint("food_item_id", id))
		fallthrough
	case apperr.ENotFound:
		flash.Add(c, flash.Error, apperr.ErrorMessage(err))
		h.redirect(c, "/dashboard/")
	default:
		h.fail(c, err)
	}
	return nil, false
}

func (h *Handler) renderFoodForm(c *gin.Context, status int, title, action string, form *validation.FoodItemForm, errs *validation.Errors) {
	h.render(c, status, "food_form.html", gin.H{
		"Title":  title,
		"Action": action,
		"Form":   form,
		"Errors": errs,
	})
}

func editPath(item *models.FoodItem) string {
	return "/food/edit/" + strconv.FormatUint(uint64(item.ID), 10) + "/"
}
