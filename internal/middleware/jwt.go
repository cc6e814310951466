package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// StaffRole is the role claim required for privileged operations such
// as forced re-verification.
const StaffRole = "STAFF"

// StaffAuth returns an Echo middleware that validates an optional
// Bearer token and marks the request as staff when the token carries
// the STAFF role.  Requests without a token pass through unmarked, so
// the same verify endpoint serves both the public post-checkout call
// and staff tooling; handlers that need staff privileges check
// c.Get("staff").  An invalid or forged token is rejected outright.
func StaffAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				// No token: proceed unauthenticated.
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret.  The callback ensures
			// the signing method matches what we expect; anything else
			// is rejected.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// Expose the subject to downstream middleware (rate limit
			// keys) and flag staff tokens for privileged handlers.
			if sub, ok := claims["sub"].(string); ok {
				c.Set("user_id", sub)
			}
			if role, ok := claims["role"].(string); ok && role == StaffRole {
				c.Set("staff", true)
			}
			return next(c)
		}
	}
}
