// Package store is the persistence layer for users, restaurants and their
// menus. Every lookup is an explicit query; nothing relies on lazy relation
// loading.
package store

import (
	"context"

	"restaurant-menu/apperr"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// notFound converts gorm's missing-row error to an ENotFound error with msg.
// Other errors are wrapped as internal.
func notFound(err error, op, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op, msg)
	}
	return apperr.Internal(op, err)
}
