package pasetotoken

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/config"
)

const CtxKeyClaims = "auth.claims"

func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	v := c.Locals(CtxKeyClaims)
	if v == nil {
		return nil, false
	}
	cl, ok := v.(*Claims)
	return cl, ok
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c fiber.Ctx) (string, bool) {
	h := c.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// NewManagerFromCentral creates a PASETO manager from central config.
func NewManagerFromCentral(cfg *config.Config) (*Manager, error) {
	p := cfg.Auth.Paseto

	keys, err := LoadKeys(KeyStrings{
		Mode:         Mode(p.Mode),
		SymmetricHex: p.LocalKeyHex,
		SecretHex:    p.SecretKeyHex,
		PublicHex:    p.PublicKeyHex,
	})
	if err != nil {
		return nil, err
	}

	return New(Config{
		Mode:      Mode(p.Mode),
		Issuer:    p.Issuer,
		Audience:  p.Audience,
		AccessTTL: time.Duration(p.AccessTTLMinutes) * time.Minute,
	}, keys)
}
