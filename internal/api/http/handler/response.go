package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/apperr"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

// fail translates a service error into a status code via the error
// taxonomy. This is the only place kinds become HTTP statuses.
func fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		status = fiber.StatusBadRequest
	// Cold objects and locked accounts are refusals, not conflicts: the
	// caller must restore first or wait out the lock. Meta carries the
	// restore state / unlock time.
	case apperr.KindForbidden, apperr.KindColdStorage, apperr.KindLocked:
		status = fiber.StatusForbidden
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindConflict:
		status = fiber.StatusConflict
	case apperr.KindQuotaExceeded:
		status = fiber.StatusTooManyRequests
	case apperr.KindTransient, apperr.KindUnknown:
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	body := fiber.Map{"error": clientMessage(err)}
	if meta := metaOf(err); len(meta) > 0 {
		body["meta"] = meta
	}
	return c.Status(status).JSON(body)
}

// clientMessage strips the internal cause chain: only the taxonomy
// message leaves the process.
func clientMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return err.Error()
}

func metaOf(err error) map[string]any {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Meta
	}
	return nil
}
