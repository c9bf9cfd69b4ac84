package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/repository"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  The roles accepted
// correspond to the values stored in the JWT's "role" claim.  It assumes a
// previous middleware has extracted the role into the context under "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("role")
			role, ok := v.(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RejectBanned looks up the authenticated user on every protected request
// and rejects banned accounts with 403 regardless of token validity, so a
// ban takes effect without waiting for the access token to expire.
func RejectBanned(users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := ContextUserID(c)
			if uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, uid)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if u.IsBanned {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account banned"})
			}
			c.Set("user_email", u.Email)
			return next(c)
		}
	}
}

// AdminGate admits users whose role is in roles, plus users whose email is
// on the configured allow-list.  The allow-list covers bootstrap admins
// created before role assignment existed.  RejectBanned must run first so
// the email is available in context.
func AdminGate(isAllowedEmail func(string) bool, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, ok := c.Get("role").(string); ok && allowed[role] {
				return next(c)
			}
			if email, ok := c.Get("user_email").(string); ok && isAllowedEmail(email) {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}

// ContextUserID extracts the numeric user ID placed in context by JWTAuth.
// The sub claim round-trips through JSON, so it may surface as a float64.
func ContextUserID(c echo.Context) uint64 {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int64:
		return uint64(v)
	default:
		return 0
	}
}
