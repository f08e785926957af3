package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/middleware"
	"github.com/greenli8/idea-validator/internal/model"
	"github.com/greenli8/idea-validator/internal/repository"
)

// UserHandler covers the profile surface: read, update, delete.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

type updateProfileReq struct {
	Name        *string            `json:"name"`
	Preferences *model.Preferences `json:"preferences"`
}

// Me handles GET /v1/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found", "code": CodeNotFound})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// UpdateProfile handles PUT /v1/users/me. Fields are patched individually;
// omitted fields keep their stored values.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	if req.Name == nil && req.Preferences == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update", "code": CodeValidation})
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if len(trimmed) < 2 || len(trimmed) > 50 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name must be 2-50 characters", "code": CodeValidation})
		}
		req.Name = &trimmed
	}
	if req.Preferences != nil {
		switch req.Preferences.Theme {
		case "light", "dark", "system":
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "theme must be light, dark or system", "code": CodeValidation})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, userID, req.Name, req.Preferences)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found", "code": CodeNotFound})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Credits handles GET /v1/users/credits: the most recent ledger entries,
// newest first.
func (h *UserHandler) Credits(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Users.CreditHistory(ctx, userID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Delete handles DELETE /v1/users/me. Reports and ledger rows go with the
// account via FK cascade.
func (h *UserHandler) Delete(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}
