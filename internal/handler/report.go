package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/middleware"
	"github.com/greenli8/idea-validator/internal/repository"
)

// ReportHandler serves the report history. Every query is scoped to the
// authenticated owner; there is no cross-user read path.
type ReportHandler struct {
	Reports *repository.ReportRepo
}

func NewReportHandler(reports *repository.ReportRepo) *ReportHandler {
	return &ReportHandler{Reports: reports}
}

// List handles GET /v1/reports.
func (h *ReportHandler) List(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reports, err := h.Reports.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": reports})
}

// Get handles GET /v1/reports/:id.
func (h *ReportHandler) Get(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid report id", "code": CodeValidation})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found", "code": CodeNotFound})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, rep)
}

// Clear handles DELETE /v1/reports, wiping the caller's history.
func (h *ReportHandler) Clear(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Reports.DeleteByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
