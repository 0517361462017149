package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// WebhookAuthMiddleware validates the x-callback-token header that Xendit
// attaches to every delivery. When no token is configured the check is
// skipped, which keeps local development working without gateway
// credentials.
func WebhookAuthMiddleware(callbackToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if callbackToken == "" {
			return c.Next()
		}

		got := c.Get("x-callback-token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(callbackToken)) != 1 {
			log.Printf("[Webhook] rejected delivery with bad callback token from %s", c.IP())
			return fiber.NewError(fiber.StatusUnauthorized, "invalid callback token")
		}

		return c.Next()
	}
}
