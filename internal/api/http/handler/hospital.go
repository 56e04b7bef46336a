package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/service/hospital"
)

type HospitalHandler struct {
	svc hospital.Service
}

func NewHospitalHandler(svc hospital.Service) *HospitalHandler {
	return &HospitalHandler{svc: svc}
}

// POST /api/v1/hospitals
func (h *HospitalHandler) Create(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var req hospital.CreateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	hosp, err := h.svc.Create(c.Context(), caller, req)
	if err != nil {
		return fail(c, err)
	}

	return created(c, hosp)
}

// GET /api/v1/hospitals/:id
func (h *HospitalHandler) Get(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	hosp, err := h.svc.Get(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, hosp)
}

// GET /api/v1/hospitals
func (h *HospitalHandler) List(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	list, err := h.svc.List(c.Context(), caller)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, list)
}

// PUT /api/v1/hospitals/:id/pricing
func (h *HospitalHandler) SetPricing(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	var body struct {
		BasePrice      float64 `json:"base_price"`
		IncludedPages  int     `json:"included_pages"`
		ExtraPagePrice float64 `json:"extra_page_price"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.SetPricing(c.Context(), caller, id, model.Pricing{
		BasePrice:      body.BasePrice,
		IncludedPages:  body.IncludedPages,
		ExtraPagePrice: body.ExtraPagePrice,
	}); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// PUT /api/v1/hospitals/:id/active
func (h *HospitalHandler) SetActive(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.SetActive(c.Context(), caller, id, body.Active); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /api/v1/hospitals/:id/propose-update
func (h *HospitalHandler) ProposeUpdate(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	var upd hospital.ProfileUpdate
	if err := c.Bind().JSON(&upd); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.ProposeUpdate(c.Context(), caller, id, upd); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "update proposed; awaiting platform approval"},
	})
}

// POST /api/v1/hospitals/:id/approve-update
func (h *HospitalHandler) ApproveUpdate(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	hosp, err := h.svc.ApproveUpdate(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, hosp)
}

// POST /api/v1/hospitals/:id/reject-update
func (h *HospitalHandler) RejectUpdate(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid hospital id")
	}

	if err := h.svc.RejectUpdate(c.Context(), caller, id); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}
