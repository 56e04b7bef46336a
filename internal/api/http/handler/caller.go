package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arcmed/arcmed_backend/internal/scope"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
)

// callerFromFiber rebuilds the acting principal from the verified claims
// placed in locals by the auth middleware.
func callerFromFiber(c fiber.Ctx) (scope.Caller, bool) {
	claims, ok := pasetotoken.ClaimsFromFiber(c)
	if !ok {
		return scope.Caller{}, false
	}
	return scope.FromClaims(claims), true
}

func paramUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}
