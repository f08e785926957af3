package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Machine-readable rejection codes. Clients decide from these whether to
// silently redirect to login (expired) or surface an error (malformed), so
// the three cases stay distinct.
const (
	CodeMissingToken = "MISSING_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeInvalidToken = "INVALID_TOKEN"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects its claims into the request context. The provided secret must
// match the one used when issuing tokens. Handlers behind this middleware
// read the authenticated identity via CurrentUserID / CurrentEmail.
// Verification is stateless: no I/O happens here, and rejection occurs
// before any handler side effect.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "authentication token required",
					"code":  CodeMissingToken,
				})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"error": "your session has expired, please login again",
						"code":  CodeTokenExpired,
					})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "invalid authentication token",
					"code":  CodeInvalidToken,
				})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "invalid authentication token",
					"code":  CodeInvalidToken,
				})
			}

			// JWT numbers decode as float64; normalize the subject to uint64
			// so handlers get the user ID in its storage type.
			sub, _ := claims["sub"].(float64)
			email, _ := claims["email"].(string)
			if sub <= 0 || email == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "invalid token payload",
					"code":  CodeInvalidToken,
				})
			}
			isPro, _ := claims["is_pro"].(bool)

			c.Set("user_id", uint64(sub))
			c.Set("email", email)
			c.Set("is_pro", isPro)
			return next(c)
		}
	}
}
