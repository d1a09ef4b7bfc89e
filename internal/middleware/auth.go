package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authenticated resolves the caller's identity from the session cookie or,
// failing that, a Bearer JWT, and stores the user id in c.Locals("user_id").
// Requests with neither get a 401.
func Authenticated(sessionStore *session.Store, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionStore.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session error"})
		}

		if raw := sess.Get("user_id"); raw != nil {
			userID, err := uuid.Parse(fmt.Sprint(raw))
			if err == nil {
				c.Locals("user_id", userID)
				return c.Next()
			}
		}

		userID, err := userIDFromBearer(c.Get("Authorization"), jwtSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func userIDFromBearer(header string, secret string) (uuid.UUID, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return uuid.Nil, fmt.Errorf("missing bearer token")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token has no subject: %w", err)
	}
	return uuid.Parse(subject)
}

// UserID reads the identity set by Authenticated.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	return userID, ok
}
