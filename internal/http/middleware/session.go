package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"libportal/internal/auth"
)

// SessionLocalKey stores the resolved *auth.Session in Fiber locals.
const SessionLocalKey = "session"

// Resolver turns an Authorization header into a session.
type Resolver interface {
	Resolve(authHeader string) (*auth.Session, error)
}

// Session resolves the caller's session and stores it in locals and the user
// context. It never rejects a request; see RequireSession.
func Session(r Resolver, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := r.Resolve(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			rid, _ := c.Locals(RequestIDLocalKey).(string)
			logger.Debug().Err(err).Str("request_id", rid).Msg("session rejected")
		}
		c.Locals(SessionLocalKey, s)
		c.SetUserContext(auth.NewContext(c.UserContext(), s))
		return c.Next()
	}
}

// SessionFrom returns the session stored by Session, or a Checking session.
func SessionFrom(c *fiber.Ctx) *auth.Session {
	if s, ok := c.Locals(SessionLocalKey).(*auth.Session); ok && s != nil {
		return s
	}
	return &auth.Session{State: auth.Checking}
}

// RequireSession rejects requests without an authenticated session.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !SessionFrom(c).Authenticated() {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}
