package handlers

import (
	"database/sql/driver"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"retail-erp-backend/internal/service"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.Wrap(service.ErrValidation, "name is required"), fiber.StatusBadRequest},
		{service.ErrEmptyCart, fiber.StatusBadRequest},
		{errors.Wrap(service.ErrNotFound, "order 9"), fiber.StatusNotFound},
		{errors.Wrap(service.ErrInsufficientStock, "Shirt (M)"), fiber.StatusConflict},
		{errors.Wrap(service.ErrConflict, "variant"), fiber.StatusConflict},
		{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{errors.Wrap(driver.ErrBadConn, "insert order"), fiber.StatusServiceUnavailable},
		{fiber.NewError(fiber.StatusBadRequest, "Invalid ID"), fiber.StatusBadRequest},
		{errors.New("syntax error at or near"), fiber.StatusInternalServerError},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	err := errors.New("pq: relation \"orders\" does not exist")
	assert.Equal(t, "Internal server error", message(err, fiber.StatusInternalServerError))
	assert.Equal(t, "cart is empty", message(service.ErrEmptyCart, fiber.StatusBadRequest))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("", "start_date")
	assert.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = parseDate("2026-02-28", "start_date")
	assert.NoError(t, err)
	assert.Equal(t, 28, d.Day())

	_, err = parseDate("28/02/2026", "end_date")
	assert.Equal(t, fiber.StatusBadRequest, StatusOf(err))
}
