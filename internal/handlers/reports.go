package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/database"
)

func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	summary, err := h.svc.Dashboard.Summary(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summary)
}

// GetFinancialReport totals revenue between start_date and end_date (YYYY-MM-DD, both optional).
func (h *Handler) GetFinancialReport(c *fiber.Ctx) error {
	startDate, err := parseDate(c.Query("start_date"), "start_date")
	if err != nil {
		return fail(c, err)
	}
	endDate, err := parseDate(c.Query("end_date"), "end_date")
	if err != nil {
		return fail(c, err)
	}

	report, err := h.svc.Dashboard.FinancialReport(c.UserContext(), startDate, endDate)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// GetSQLLogs returns the most recent statements; ?limit= caps the list.
func (h *Handler) GetSQLLogs(c *fiber.Ctx) error {
	queries := database.SQLRecorder.Recent(c.QueryInt("limit", 50))
	return c.JSON(fiber.Map{"queries": queries, "total": len(queries)})
}

func (h *Handler) ClearSQLLogs(c *fiber.Ctx) error {
	database.SQLRecorder.Clear()
	return c.JSON(fiber.Map{"message": "SQL logs cleared"})
}
