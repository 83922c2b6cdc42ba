package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// SlotHandler manages the parking slot inventory.  Occupancy is never
// set here — only sessions move that flag.
type SlotHandler struct {
	Slots *repository.SlotRepo
}

func NewSlotHandler(r *repository.SlotRepo) *SlotHandler { return &SlotHandler{Slots: r} }

type slotReq struct {
	Label    string `json:"label"`
	IsActive *bool  `json:"is_active"`
}

// Create adds a slot to the inventory (admin).
func (h *SlotHandler) Create(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Label) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label required"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	slot := &model.ParkingSlot{Label: strings.ToUpper(strings.TrimSpace(req.Label)), IsActive: active}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Slots.Create(ctx, slot); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

// List returns the whole inventory with live occupancy.
func (h *SlotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	slots, err := h.Slots.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// Get returns one slot.
func (h *SlotHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	slot, err := h.Slots.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

// SetActive enables or disables a slot for new sessions (admin).
func (h *SlotHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req slotReq
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Slots.SetActive(ctx, id, *req.IsActive); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes an unoccupied slot (admin).  Occupied slots return 409.
func (h *SlotHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Slots.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
