package handlers

import (
	"database/sql/driver"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/middleware"
	"retail-erp-backend/internal/service"
)

const dateLayout = "2006-01-02"

// Handler serves the JSON API and the admin pages on top of the services.
type Handler struct {
	svc *service.Services
}

func New(svc *service.Services) *Handler {
	return &Handler{svc: svc}
}

// StatusOf maps a service error onto an HTTP status code.
func StatusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrEmptyCart):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, driver.ErrBadConn):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// message hides database details behind a generic text for 5xx responses.
func message(err error, status int) string {
	switch status {
	case fiber.StatusInternalServerError:
		return "Internal server error"
	case fiber.StatusServiceUnavailable:
		return "Database unavailable, try again"
	}
	return err.Error()
}

// fail writes {"error": ...} with the mapped status.
func fail(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	entry := log.WithField("request_id", c.Locals("requestid")).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": message(err, status)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// redirectWith sends a page user back to path with a flash message.
func redirectWith(c *fiber.Ctx, path string, err error, notice string) error {
	q := url.Values{}
	if err != nil {
		status := StatusOf(err)
		if status >= fiber.StatusInternalServerError {
			log.WithField("request_id", c.Locals("requestid")).WithError(err).Error("page action failed")
		}
		q.Set("error", message(err, status))
	} else if notice != "" {
		q.Set("notice", notice)
	}
	if len(q) == 0 {
		return c.Redirect(path)
	}
	return c.Redirect(path + "?" + q.Encode())
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}
	return uint(id), nil
}

// parseDate reads an optional YYYY-MM-DD value in local time.
func parseDate(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid "+field+" format. Use YYYY-MM-DD")
	}
	return t, nil
}

func formInt(c *fiber.Ctx, key string) (int, error) {
	v := c.FormValue(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(service.ErrValidation, "%s must be a whole number", key)
	}
	return n, nil
}

func currentUser(c *fiber.Ctx) uint {
	userID, _, err := middleware.GetUserFromContext(c)
	if err != nil {
		return 0
	}
	return userID
}

// Health reports liveness and database reachability.
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.svc.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "Degraded", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "Running", "message": "API Ready"})
}
