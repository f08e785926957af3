package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/repository"
)

// WaitlistHandler records interest signups from the public landing page.
type WaitlistHandler struct {
	Waitlist *repository.WaitlistRepo
}

func NewWaitlistHandler(wl *repository.WaitlistRepo) *WaitlistHandler {
	return &WaitlistHandler{Waitlist: wl}
}

type waitlistReq struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

// Join handles POST /v1/waitlist. Re-submitting the same email is not an
// error; the row is upserted and the response looks identical.
func (h *WaitlistHandler) Join(c echo.Context) error {
	var req waitlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required", "code": CodeValidation})
	}
	if req.Source == "" {
		req.Source = "landing"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Waitlist.Upsert(ctx, req.Email, req.Source)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "waitlist signup failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "id": entry.ID})
}
