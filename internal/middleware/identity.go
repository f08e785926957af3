package middleware

// identity.go exposes the authenticated identity that JWTAuth stored in the
// Echo context. Handlers use these instead of reaching into c.Get directly.

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when a handler behind JWTAuth cannot find the
// expected claims in context, which indicates a wiring mistake.
var ErrNoIdentity = errors.New("no authenticated identity in context")

// CurrentUserID returns the authenticated user's ID.
func CurrentUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
		return id, nil
	}
	return 0, ErrNoIdentity
}

// CurrentEmail returns the authenticated user's email.
func CurrentEmail(c echo.Context) (string, error) {
	if email, ok := c.Get("email").(string); ok && email != "" {
		return email, nil
	}
	return "", ErrNoIdentity
}

// rateKeyUserID feeds the rate limiter's key builder. Unauthenticated
// requests share the "anon" bucket per IP.
func rateKeyUserID(c echo.Context) string {
	if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
