package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
)

func (r *Router) registerHospitalRoutes(api fiber.Router, h *handler.HospitalHandler, authRequired fiber.Handler) {
	hospitals := api.Group("/hospitals", authRequired)

	hospitals.Get("/", h.List)
	hospitals.Post("/", h.Create)

	g := hospitals.Group("/:id")
	g.Get("/", h.Get)
	g.Put("/pricing", h.SetPricing)
	g.Put("/active", h.SetActive)
	g.Post("/propose-update", h.ProposeUpdate)
	g.Post("/approve-update", h.ApproveUpdate)
	g.Post("/reject-update", h.RejectUpdate)
}
