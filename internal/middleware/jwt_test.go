package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, authorization string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	return rec, c
}

func TestJWTAuthMissingToken(t *testing.T) {
	for _, header := range []string{"", "Basic abc", "bearer lowercase"} {
		rec, _ := runJWT(t, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d", header, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), CodeMissingToken) {
			t.Fatalf("header %q: body = %s", header, rec.Body.String())
		}
	}
}

func TestJWTAuthExpiredToken(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 7, "u@example.com", false, -time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, _ := runJWT(t, "Bearer "+access.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), CodeTokenExpired) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec, _ := runJWT(t, "Bearer not.a.jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), CodeInvalidToken) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	access, err := utils.NewAccessToken("some-other-secret", 7, "u@example.com", false, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, _ := runJWT(t, "Bearer "+access.Token)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), CodeInvalidToken) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestJWTAuthValidTokenInjectsIdentity(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 42, "u@example.com", true, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec, c := runJWT(t, "Bearer "+access.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	id, err := CurrentUserID(c)
	if err != nil || id != 42 {
		t.Fatalf("CurrentUserID = %d, %v", id, err)
	}
	email, err := CurrentEmail(c)
	if err != nil || email != "u@example.com" {
		t.Fatalf("CurrentEmail = %q, %v", email, err)
	}
	if isPro, _ := c.Get("is_pro").(bool); !isPro {
		t.Fatal("is_pro not set")
	}
}
