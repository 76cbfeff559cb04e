package service

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyCart is returned by checkout when there is nothing to sell.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock is returned when a sale would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	// ErrConflict marks a duplicate variant or username.
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// notFound maps gorm's missing-record error onto ErrNotFound and wraps the rest.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "load %s", what)
}
