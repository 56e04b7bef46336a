package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
)

func (r *Router) registerFileRoutes(api fiber.Router, h *handler.FileHandler, authRequired fiber.Handler) {
	files := api.Group("/files", authRequired)

	f := files.Group("/:id")
	f.Get("/status", h.Status)
	f.Post("/cancel", h.Cancel)
	f.Post("/confirm", h.Confirm)
	f.Delete("/draft", h.DiscardDraft)
	f.Get("/serve", h.Serve)
	f.Post("/restore", h.Restore)
	f.Post("/request-download", h.RequestDownload)

	// Deletion workflow: immediate delete for privileged roles, the
	// request/approve/reject chain for everyone else.
	f.Delete("/", h.Delete)
	f.Post("/request-deletion", h.RequestDeletion)
	f.Post("/approve-deletion", h.ApproveDeletion)
	f.Post("/reject-deletion", h.RejectDeletion)
}
