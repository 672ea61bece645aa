package disconnect

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// New cancels the user context of a request when the client closes its
// connection before the handler has returned. Handlers must pass
// c.UserContext() down to the work they want stopped.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		defer cancel()

		stop := watch(c.Context().Conn(), cancel)
		defer stop()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
