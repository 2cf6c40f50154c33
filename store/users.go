package store

import (
	"context"
	"strings"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UsernameTaken reports whether a user with username exists, ignoring case.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.User{}).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Count(&n).Error
	if err != nil {
		return false, apperr.Internal("store.UsernameTaken", err)
	}
	return n > 0, nil
}

// EmailTaken reports whether any user other than exceptUserID has email,
// ignoring case. Pass 0 to compare against every user.
func (s *Store) EmailTaken(ctx context.Context, email string, exceptUserID uint) (bool, error) {
	q := s.conn(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if exceptUserID != 0 {
		q = q.Where("id <> ?", exceptUserID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, apperr.Internal("store.EmailTaken", err)
	}
	return n > 0, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "store.FindUserByID", "User not found.")
	}
	return &user, nil
}

// FindUserByUsername matches the username exactly.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "store.FindUserByUsername", "User not found.")
	}
	return &user, nil
}

// CreateUser inserts a bare user account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.conn(ctx).Create(user).Error; err != nil {
		return apperr.Internal("store.CreateUser", err)
	}
	return nil
}

// CreateUserWithRestaurant inserts user and its restaurant in one
// transaction. The restaurant is named after the user when name is blank
// and takes the user's email as its contact address.
func (s *Store) CreateUserWithRestaurant(ctx context.Context, user *models.User, name string) (*models.Restaurant, error) {
	if strings.TrimSpace(name) == "" {
		name = user.Username
	}
	restaurant := &models.Restaurant{
		Name:        name,
		Address:     "",
		PhoneNumber: "",
		Email:       user.Email,
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return errors.Wrap(err, "create user")
		}
		restaurant.UserID = user.ID
		if err := tx.Create(restaurant).Error; err != nil {
			return errors.Wrap(err, "create restaurant")
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("store.CreateUserWithRestaurant", err)
	}
	return restaurant, nil
}

// TouchLastLogin records a successful login time.
func (s *Store) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	err := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login", at).Error
	if err != nil {
		return apperr.Internal("store.TouchLastLogin", err)
	}
	return nil
}

// UserSummary is one row of the admin overview.
type UserSummary struct {
	User       models.User
	Restaurant *models.Restaurant
	ItemCount  int64
}

// ListUserSummaries returns every user with its restaurant and menu size,
// ordered by user id.
func (s *Store) ListUserSummaries(ctx context.Context) ([]UserSummary, error) {
	const op = "store.ListUserSummaries"

	var users []models.User
	if err := s.conn(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	var restaurants []models.Restaurant
	if err := s.conn(ctx).Find(&restaurants).Error; err != nil {
		return nil, apperr.Internal(op, err)
	}
	var counts []struct {
		RestaurantID uint
		N            int64
	}
	err := s.conn(ctx).Model(&models.FoodItem{}).
		Select("restaurant_id, COUNT(*) AS n").
		Group("restaurant_id").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	byUser := make(map[uint]*models.Restaurant, len(restaurants))
	for i := range restaurants {
		byUser[restaurants[i].UserID] = &restaurants[i]
	}
	itemCounts := make(map[uint]int64, len(counts))
	for _, c := range counts {
		itemCounts[c.RestaurantID] = c.N
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		sum := UserSummary{User: u, Restaurant: byUser[u.ID]}
		if sum.Restaurant != nil {
			sum.ItemCount = itemCounts[sum.Restaurant.ID]
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}
