package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/metrics"
)

// CountRequests records one counter increment per finished request,
// labelled with the matched route pattern rather than the raw path so
// cardinality stays bounded.
func CountRequests(met *metrics.Metrics) fiber.Handler {
	return func(c fiber.Ctx) error {
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		met.HTTPRequests.WithLabelValues(
			c.Method(), route, strconv.Itoa(c.Response().StatusCode()),
		).Inc()
		return err
	}
}
