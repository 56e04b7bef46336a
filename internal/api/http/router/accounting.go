package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/api/http/handler"
)

func (r *Router) registerAccountingRoutes(api fiber.Router, h *handler.AccountingHandler, authRequired fiber.Handler) {
	invoices := api.Group("/invoices", authRequired)
	invoices.Get("/", h.List)
	invoices.Post("/", h.Generate)
	invoices.Get("/:id", h.Get)
	invoices.Post("/:id/payment", h.ReceivePayment)
	invoices.Delete("/:id", h.Delete)

	api.Post("/expenses", authRequired, h.RecordExpense)
	api.Get("/ledger", authRequired, h.Ledger)
}
