package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/config"
)

func postJSON(t *testing.T, path, body string, userID uint64, fn echo.HandlerFunc, method string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	if err := fn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestSignupValidation(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","password":"hunter22"}`},
		{"empty email", `{"password":"hunter22"}`},
		{"short password", `{"email":"u@example.com","password":"abc"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, "/v1/auth/signup", tc.body, 0, h.Signup, http.MethodPost)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), CodeValidation) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil)
	rec := postJSON(t, "/v1/auth/login", `{"email":"u@example.com"}`, 0, h.Login, http.MethodPost)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGoogleLoginRequiresToken(t *testing.T) {
	h := NewAuthHandler(config.Config{}, nil)
	rec := postJSON(t, "/v1/auth/google", `{"token":"  "}`, 0, h.GoogleLogin, http.MethodPost)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	h := NewUserHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty patch", `{}`},
		{"name too short", `{"name":"a"}`},
		{"name too long", `{"name":"` + strings.Repeat("x", 51) + `"}`},
		{"bad theme", `{"preferences":{"theme":"neon","emailNotifications":true,"marketingEmails":false}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, "/v1/users/profile", tc.body, 7, h.UpdateProfile, http.MethodPut)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestWaitlistValidation(t *testing.T) {
	h := NewWaitlistHandler(nil)
	rec := postJSON(t, "/v1/waitlist", `{"email":"nope"}`, 0, h.Join, http.MethodPost)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreditHistoryRequiresAuth(t *testing.T) {
	h := NewUserHandler(nil)
	rec := postJSON(t, "/v1/users/credits", "", 0, h.Credits, http.MethodGet)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestReportsRequireAuth(t *testing.T) {
	h := NewReportHandler(nil)
	rec := postJSON(t, "/v1/reports", "", 0, h.List, http.MethodGet)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
