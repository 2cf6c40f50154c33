package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOverview lists every account with its restaurant and menu size.
// Superusers only.
func (h *Handler) AdminOverview(c *gin.Context) {
	summaries, err := h.store.ListUserSummaries(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	var items int64
	withRestaurant := 0
	for _, s := range summaries {
		items += s.ItemCount
		if s.Restaurant != nil {
			withRestaurant++
		}
	}

	h.render(c, http.StatusOK, "admin.html", gin.H{
		"Title":          "Accounts",
		"Summaries":      summaries,
		"Count":          len(summaries),
		"WithRestaurant": withRestaurant,
		"TotalItems":     items,
	})
}

// AdminSummaries is the JSON form of AdminOverview.
func (h *Handler) AdminSummaries(c *gin.Context) {
	summaries, err := h.store.ListUserSummaries(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list accounts"})
		return
	}
	users := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		row := gin.H{
			"id":           s.User.ID,
			"username":     s.User.Username,
			"email":        s.User.Email,
			"is_superuser": s.User.IsSuperuser,
			"last_login":   s.User.LastLogin,
			"item_count":   s.ItemCount,
		}
		if s.Restaurant != nil {
			row["restaurant"] = gin.H{"id": s.Restaurant.ID, "name": s.Restaurant.Name}
		}
		users = append(users, row)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}
