package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/utils"
)

// TokenHeader is the request header carrying the session token.
const TokenHeader = "X-Access-Token"

const identityKey = "identity"

// Identity is the authenticated caller, as attested by their token. It is
// read straight from the claims; no database round trip happens per
// request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	RoleID uint
}

// Auth verifies the session token and stores the caller's identity in the
// request locals.
func Auth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(TokenHeader)
		if token == "" {
			return apperr.Auth("no token provided")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			return apperr.Auth("invalid or expired token")
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return apperr.Auth("invalid or expired token")
		}

		c.Locals(identityKey, Identity{
			UserID: userID,
			Email:  claims.Email,
			RoleID: claims.RoleID,
		})
		return c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// It must run after Auth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return apperr.Auth("no token provided")
		}
		if id.RoleID != models.RoleAdmin {
			return apperr.Forbidden("admin privileges required")
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityKey).(Identity)
	return id, ok
}
