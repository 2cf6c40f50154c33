package store

import (
	"context"

	"restaurant-menu/apperr"
	"restaurant-menu/models"
)

// ListFoodItems returns the menu of a restaurant ordered by id.
func (s *Store) ListFoodItems(ctx context.Context, restaurantID uint) ([]models.FoodItem, error) {
	var items []models.FoodItem
	err := s.conn(ctx).Where("restaurant_id = ?", restaurantID).Order("id").Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("store.ListFoodItems", err)
	}
	return items, nil
}

// CreateFoodItem attaches item to the restaurant with restaurantID.
func (s *Store) CreateFoodItem(ctx context.Context, restaurantID uint, item *models.FoodItem) error {
	item.ID = 0
	item.RestaurantID = restaurantID
	if err := s.conn(ctx).Create(item).Error; err != nil {
		return apperr.Internal("store.CreateFoodItem", err)
	}
	return nil
}

// FoodItemForOwner loads a food item and checks that its restaurant belongs
// to userID. A missing item is ENotFound, someone else's item is EForbidden.
func (s *Store) FoodItemForOwner(ctx context.Context, itemID, userID uint) (*models.FoodItem, error) {
	const op = "store.FoodItemForOwner"

	var item models.FoodItem
	if err := s.conn(ctx).First(&item, itemID).Error; err != nil {
		return nil, notFound(err, op, "Food item not found.")
	}

	var n int64
	err := s.conn(ctx).Model(&models.Restaurant{}).
		Where("id = ? AND user_id = ?", item.RestaurantID, userID).
		Count(&n).Error
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if n == 0 {
		return nil, apperr.Forbidden(op, "You do not have permission to modify this item.")
	}
	return &item, nil
}

// UpdateFoodItem writes the editable fields of item, zero values included.
func (s *Store) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	err := s.conn(ctx).Model(item).
		Select("name", "description", "price", "available").
		Updates(item).Error
	if err != nil {
		return apperr.Internal("store.UpdateFoodItem", err)
	}
	return nil
}

func (s *Store) DeleteFoodItem(ctx context.Context, item *models.FoodItem) error {
	if err := s.conn(ctx).Delete(item).Error; err != nil {
		return apperr.Internal("store.DeleteFoodItem", err)
	}
	return nil
}
