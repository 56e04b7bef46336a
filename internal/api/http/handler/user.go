package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/service/user"
)

type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// POST /api/v1/users
func (h *UserHandler) Create(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var req user.CreateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.svc.Create(c.Context(), caller, req)
	if err != nil {
		return fail(c, err)
	}

	return created(c, u)
}

// GET /api/v1/users/:id
func (h *UserHandler) Get(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	u, err := h.svc.Get(c.Context(), caller, id)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, u)
}

// GET /api/v1/users
func (h *UserHandler) List(c fiber.Ctx) error {
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

// PUT /api/v1/users/:id/active
func (h *UserHandler) SetActive(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
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
