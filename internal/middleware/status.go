package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// responseStatus reports the status the client will see. Errors returned
// down the chain are rendered by the app's ErrorHandler only after every
// middleware has returned, so the response still holds the default code.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// routePath returns the registered route pattern, falling back to the raw path.
func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}
