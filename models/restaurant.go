package models

import (
	"fmt"
	"time"
)

// Restaurant belongs to exactly one user; the unique index on UserID keeps
// it that way.
type Restaurant struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Owner       User       `json:"owner,omitempty" gorm:"foreignKey:UserID"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Address     string     `json:"address"`
	PhoneNumber string     `json:"phone_number"`
	Email       string     `json:"email"`
	MenuItems   []FoodItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type FoodItem struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RestaurantID uint      `json:"restaurant_id" gorm:"index;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Description  string    `json:"description"`
	Price        float64   `json:"price" gorm:"not null;check:price > 0"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceString renders the price with two decimals.
func (f *FoodItem) PriceString() string {
	return fmt.Sprintf("%.2f", f.Price)
}
