package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/service/auth"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
)

// AuthRequired validates a Bearer PASETO access token and checks that the
// session it names is still live. On success the verified claims are
// stored in c.Locals(pasetotoken.CtxKeyClaims).
func AuthRequired(mgr *pasetotoken.Manager, sessions auth.Sessions) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := pasetotoken.BearerToken(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		claims, err := mgr.Verify(token)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		// Tokens without a session are not usable on protected routes;
		// logout revokes the session, not the token.
		if claims.SessionID == nil {
			return fiber.ErrUnauthorized
		}
		live, err := sessions.Valid(c.Context(), *claims.SessionID)
		if err != nil || !live {
			return fiber.ErrUnauthorized
		}

		c.Locals(pasetotoken.CtxKeyClaims, claims)
		return c.Next()
	}
}
