package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/service"
)

// GetLedger returns the entries, newest first, with the running cash balance.
func (h *Handler) GetLedger(c *fiber.Ctx) error {
	entries, err := h.svc.Ledger.ListEntries(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	balance, err := h.svc.Ledger.Balance(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance, "entries": entries})
}

// CreateLedgerEntry records a manual credit or debit.
func (h *Handler) CreateLedgerEntry(c *fiber.Ctx) error {
	var req service.ManualEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, err := h.svc.Ledger.RecordManualEntry(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}
