package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/database"
)

// RequestID tags every request with a UUID, echoed in X-Request-ID.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	})
}

// RequestLogger writes one structured access line per request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		entry := log.WithFields(log.Fields{
			"request_id": c.Locals("requestid"),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("request failed")
		} else {
			entry.Info("request")
		}
		return err
	}
}

// SQLDebug exposes the statements executed while serving the request to the
// templates as SQLQueries and TotalSQLQueries.
func SQLDebug(recorder *database.QueryRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		before := recorder.Total()
		err := c.Next()

		queries := []database.QueryLog{}
		if diff := recorder.Total() - before; diff > 0 {
			queries = recorder.Recent(diff)
		}
		c.Locals("SQLQueries", queries)
		c.Locals("TotalSQLQueries", len(queries))
		return err
	}
}
