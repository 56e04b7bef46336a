package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
)

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, authRequired fiber.Handler) {
	users := api.Group("/users", authRequired)

	users.Get("/", h.List)
	users.Post("/", h.Create)
	users.Get("/:id", h.Get)
	users.Put("/:id/active", h.SetActive)
}
