package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/internal/service/patient"
)

type PatientHandler struct {
	svc patient.Service
}

func NewPatientHandler(svc patient.Service) *PatientHandler {
	return &PatientHandler{svc: svc}
}

// POST /api/v1/patients
func (h *PatientHandler) Create(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var req patient.CreateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.Create(c.Context(), caller, req)
	if err != nil {
		return fail(c, err)
	}

	return created(c, p)
}

// GET /api/v1/patients/:id
func (h *PatientHandler) Get(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid patient id")
	}

	p, err := h.svc.Get(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, p)
}

// GET /api/v1/patients?search=&category=&limit=&offset=
func (h *PatientHandler) List(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	filter := patient.ListFilter{
		Search:   c.Query("search"),
		Category: model.PatientCategory(c.Query("category")),
		Limit:    fiber.Query[int](c, "limit"),
		Offset:   fiber.Query[int](c, "offset"),
	}

	list, err := h.svc.List(c.Context(), caller, filter)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, list)
}

// GET /api/v1/patients/:id/files
func (h *PatientHandler) Files(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid patient id")
	}

	files, err := h.svc.Files(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, files)
}
