package validation

import (
	"context"
	"regexp"
	"strings"

	"restaurant-menu/models"
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	numericRe  = regexp.MustCompile(`^\d+$`)
	phoneRe    = regexp.MustCompile(`^\+?\d[\d\s\-().]{6,}$`)
)

// Users answers the uniqueness questions the forms ask.
type Users interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptUserID uint) (bool, error)
}

// SignupForm is the account creation form.
type SignupForm struct {
	Username       string `form:"username" validate:"required,max=150,username_chars,username_free"`
	Email          string `form:"email" validate:"required,max=254,email"`
	Password1      string `form:"password1" validate:"required,min=8,not_numeric"`
	Password2      string `form:"password2" validate:"required,eqfield=Password1,differs_ci=Username"`
	RestaurantName string `form:"restaurant_name" validate:"max=255"`
}

// trimmed returns a copy with surrounding space removed from every field
// but the passwords.
func (f *SignupForm) trimmed() SignupForm {
	c := *f
	c.Username = strings.TrimSpace(c.Username)
	c.Email = strings.TrimSpace(c.Email)
	c.RestaurantName = strings.TrimSpace(c.RestaurantName)
	return c
}

// Validate checks f, returning *Errors when the submission is rejected.
func (f *SignupForm) Validate(ctx context.Context, users Users) error {
	clean := f.trimmed()
	return check(ctx, &clean, &lookup{users: users})
}

// LoginForm carries credentials only; credential checking is the
// handler's job so that failures stay generic.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// FoodItemForm is the menu item create/edit form.
type FoodItemForm struct {
	Name        string `form:"name" validate:"required,max=255"`
	Description string `form:"description"`
	Price       string `form:"price" validate:"required,decimal_number,gt_zero,price_size"`
	Available   string `form:"available"`
}

// NewFoodItemForm fills a form from an existing item.
func NewFoodItemForm(item *models.FoodItem) FoodItemForm {
	f := FoodItemForm{
		Name:        item.Name,
		Description: item.Description,
		Price:       item.PriceString(),
	}
	if item.Available {
		f.Available = "on"
	}
	return f
}

// Validate checks f, returning *Errors when the submission is rejected.
func (f *FoodItemForm) Validate(ctx context.Context) error {
	clean := *f
	clean.Name = strings.TrimSpace(clean.Name)
	clean.Price = strings.TrimSpace(clean.Price)
	return check(ctx, &clean, nil)
}

// Apply copies a validated form onto item.
func (f *FoodItemForm) Apply(item *models.FoodItem) {
	price, _ := ParseDecimal(f.Price)
	item.Name = strings.TrimSpace(f.Name)
	item.Description = strings.TrimSpace(f.Description)
	item.Price = price
	item.Available = Checkbox(f.Available)
}

// IsAvailable reports the checkbox state, for rendering.
func (f *FoodItemForm) IsAvailable() bool {
	return Checkbox(f.Available)
}

// ProfileForm edits the account and its restaurant.
type ProfileForm struct {
	FirstName         string `form:"first_name" validate:"max=150"`
	LastName          string `form:"last_name" validate:"max=150"`
	Email             string `form:"email" validate:"required,max=254,email,email_free"`
	RestaurantName    string `form:"restaurant_name" validate:"max=255"`
	RestaurantAddress string `form:"restaurant_address" validate:"max=255"`
	RestaurantPhone   string `form:"restaurant_phone" validate:"omitempty,phone_number"`
	RestaurantEmail   string `form:"restaurant_email" validate:"required_with=RestaurantName,omitempty,email"`
}

// NewProfileForm fills a form from the user and its restaurant, which may
// be nil.
func NewProfileForm(user *models.User, r *models.Restaurant) ProfileForm {
	f := ProfileForm{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
	if r != nil {
		f.RestaurantName = r.Name
		f.RestaurantAddress = r.Address
		f.RestaurantPhone = r.PhoneNumber
		f.RestaurantEmail = r.Email
	}
	return f
}

func (f *ProfileForm) trimmed() ProfileForm {
	c := *f
	for _, v := range []*string{
		&c.FirstName, &c.LastName, &c.Email,
		&c.RestaurantName, &c.RestaurantAddress, &c.RestaurantPhone, &c.RestaurantEmail,
	} {
		*v = strings.TrimSpace(*v)
	}
	return c
}

// Validate checks f for the user with userID. Unless exemptOwnEmail is set,
// the user's own current address counts as taken.
func (f *ProfileForm) Validate(ctx context.Context, users Users, userID uint, exemptOwnEmail bool) error {
	l := &lookup{users: users}
	if exemptOwnEmail {
		l.except = userID
	}
	clean := f.trimmed()
	return check(ctx, &clean, l)
}
