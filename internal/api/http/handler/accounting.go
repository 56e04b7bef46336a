package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/service/accounting"
)

type AccountingHandler struct {
	svc accounting.Service
}

func NewAccountingHandler(svc accounting.Service) *AccountingHandler {
	return &AccountingHandler{svc: svc}
}

// POST /api/v1/invoices
func (h *AccountingHandler) Generate(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var req accounting.GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	inv, err := h.svc.Generate(c.Context(), caller, req)
	if err != nil {
		return fail(c, err)
	}

	return created(c, inv)
}

// POST /api/v1/invoices/:id/payment
func (h *AccountingHandler) ReceivePayment(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid invoice id")
	}

	var payment accounting.PaymentInfo
	if err := c.Bind().JSON(&payment); err != nil {
		return badRequest(c, "invalid request body")
	}

	inv, err := h.svc.ReceivePayment(c.Context(), caller, id, payment)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, inv)
}

// DELETE /api/v1/invoices/:id
func (h *AccountingHandler) Delete(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid invoice id")
	}

	if err := h.svc.DeleteInvoice(c.Context(), caller, id); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// GET /api/v1/invoices/:id
func (h *AccountingHandler) Get(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid invoice id")
	}

	inv, err := h.svc.GetInvoice(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, inv)
}

// GET /api/v1/invoices
func (h *AccountingHandler) List(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	list, err := h.svc.ListInvoices(c.Context(), caller)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, list)
}

// POST /api/v1/expenses
func (h *AccountingHandler) RecordExpense(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var req accounting.ExpenseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	exp, err := h.svc.RecordExpense(c.Context(), caller, req)
	if err != nil {
		return fail(c, err)
	}

	return created(c, exp)
}

// GET /api/v1/ledger?party=HOSPITAL|VENDOR|INTERNAL&party_id=
func (h *AccountingHandler) Ledger(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	party := model.PartyType(c.Query("party"))

	var partyID *uuid.UUID
	if raw := c.Query("party_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid party_id")
		}
		partyID = &id
	}

	lines, err := h.svc.Ledger(c.Context(), caller, party, partyID)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, lines)
}
