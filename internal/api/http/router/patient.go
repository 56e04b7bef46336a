package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
)

func (r *Router) registerPatientRoutes(
	api fiber.Router,
	ph *handler.PatientHandler,
	fh *handler.FileHandler,
	authRequired fiber.Handler,
) {
	patients := api.Group("/patients", authRequired)

	patients.Get("/", ph.List)
	patients.Post("/", ph.Create)

	p := patients.Group("/:id")
	p.Get("/", ph.Get)
	p.Get("/files", ph.Files)
	p.Post("/upload", fh.Upload)
}
