package store

import (
	"context"
	"strings"

	"restaurant-menu/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RestaurantForUser looks up the restaurant owned by userID through the
// unique user_id index.
func (s *Store) RestaurantForUser(ctx context.Context, userID uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&restaurant).Error; err != nil {
		return nil, notFound(err, "store.RestaurantForUser", "No restaurant linked to this user.")
	}
	return &restaurant, nil
}

// DeleteRestaurant removes a restaurant and every food item it owns.
func (s *Store) DeleteRestaurant(ctx context.Context, id uint) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", id).Delete(&models.FoodItem{}).Error; err != nil {
			return errors.Wrap(err, "delete menu items")
		}
		res := tx.Delete(&models.Restaurant{}, id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete restaurant")
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFound(err, "store.DeleteRestaurant", "Restaurant not found.")
	}
	return nil
}

// Profile is an accepted profile edit.
type Profile struct {
	FirstName         string
	LastName          string
	Email             string
	RestaurantName    string
	RestaurantAddress string
	RestaurantPhone   string
	RestaurantEmail   string
}

// SaveProfile applies p to the user and creates or updates the user's
// restaurant, all in one transaction.
//
// A new restaurant falls back to the username for its name and to the
// account email for its contact email. An existing restaurant only takes
// the non-empty fields of p.
func (s *Store) SaveProfile(ctx context.Context, userID uint, p Profile) (*models.Restaurant, error) {
	const op = "store.SaveProfile"

	var restaurant models.Restaurant
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		err := tx.Model(&user).Updates(map[string]interface{}{
			"first_name": p.FirstName,
			"last_name":  p.LastName,
			"email":      p.Email,
		}).Error
		if err != nil {
			return errors.Wrap(err, "update user")
		}

		err = tx.Where("user_id = ?", userID).First(&restaurant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			restaurant = models.Restaurant{
				UserID:      userID,
				Name:        firstNonEmpty(p.RestaurantName, user.Username),
				Address:     strings.TrimSpace(p.RestaurantAddress),
				PhoneNumber: strings.TrimSpace(p.RestaurantPhone),
				Email:       firstNonEmpty(p.RestaurantEmail, p.Email),
			}
			return errors.Wrap(tx.Create(&restaurant).Error, "create restaurant")
		case err != nil:
			return errors.Wrap(err, "find restaurant")
		}

		updates := map[string]interface{}{}
		if v := strings.TrimSpace(p.RestaurantName); v != "" {
			updates["name"] = v
		}
		if v := strings.TrimSpace(p.RestaurantAddress); v != "" {
			updates["address"] = v
		}
		if v := strings.TrimSpace(p.RestaurantPhone); v != "" {
			updates["phone_number"] = v
		}
		if v := strings.TrimSpace(p.RestaurantEmail); v != "" {
			updates["email"] = v
		}
		if len(updates) == 0 {
			return nil
		}
		return errors.Wrap(tx.Model(&restaurant).Updates(updates).Error, "update restaurant")
	})
	if err != nil {
		return nil, notFound(err, op, "User not found.")
	}
	return &restaurant, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
