package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// RateHandler manages per-category hourly rates (admin).
type RateHandler struct {
	Rates *repository.RateRepo
}

func NewRateHandler(r *repository.RateRepo) *RateHandler { return &RateHandler{Rates: r} }

type rateReq struct {
	Category      string `json:"category"`
	RateCentsHour uint32 `json:"rate_cents_hour"`
}

// Upsert creates or replaces the rate for a category.
func (h *RateHandler) Upsert(c echo.Context) error {
	var req rateReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Category) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rates.Upsert(ctx, req.Category, req.RateCentsHour); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"category":        strings.ToUpper(strings.TrimSpace(req.Category)),
		"rate_cents_hour": req.RateCentsHour,
	})
}

// List returns every configured rate.
func (h *RateHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rates, err := h.Rates.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rates": rates})
}

// Delete removes the rate for a category.  Sessions in unpriced
// categories still complete, with a zero fee.
func (h *RateHandler) Delete(c echo.Context) error {
	category := strings.TrimSpace(c.Param("category"))
	if category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rates.Delete(ctx, category); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
