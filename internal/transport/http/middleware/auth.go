package middleware

import (
	"github.com/botfleet/backend/internal/core/ports"
	"github.com/gofiber/fiber/v2"
)

const AccountIDKey = "account_id"

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// AccountAuth admits account bearer tokens and stores the account id in
// locals for the handler.
func AccountAuth(verifier ports.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, err := verifier.Verify(c.Context(), bearerToken(c))
		if err != nil || subject.Kind != ports.SubjectAccount {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		c.Locals(AccountIDKey, subject.ID)
		return c.Next()
	}
}

// RegistrationAuth admits the short-lived registration tokens agents
// present exactly once, when enrolling.
func RegistrationAuth(verifier ports.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, err := verifier.Verify(c.Context(), bearerToken(c))
		if err != nil || subject.Kind != ports.SubjectRegistration {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		c.Locals(AccountIDKey, subject.ID)
		return c.Next()
	}
}

// AccountID reads the authenticated account id a middleware stored.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(AccountIDKey).(string)
	return id
}
