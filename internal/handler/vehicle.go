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

// VehicleHandler manages the caller's registered vehicles.  Every method
// is owner-scoped: the user id from the token decides what is visible.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
}

func NewVehicleHandler(r *repository.VehicleRepo) *VehicleHandler {
	return &VehicleHandler{Vehicles: r}
}

type vehicleReq struct {
	Plate    string `json:"plate"`
	Category string `json:"category"`
}

func (v *vehicleReq) normalize() bool {
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	v.Category = strings.ToUpper(strings.TrimSpace(v.Category))
	return v.Plate != "" && v.Category != ""
}

// Create registers a vehicle for the caller.
func (h *VehicleHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req vehicleReq
	if err := c.Bind(&req); err != nil || !req.normalize() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate and category required"})
	}
	v := &model.Vehicle{OwnerID: uid, Plate: req.Plate, Category: req.Category}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vehicles.Create(ctx, v); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// List returns the caller's vehicles.
func (h *VehicleHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Vehicles.ListByOwner(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": list})
}

// Update edits plate or category of one of the caller's vehicles.
func (h *VehicleHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	var req vehicleReq
	if err := c.Bind(&req); err != nil || !req.normalize() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate and category required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vehicles.UpdateByIDAndOwner(ctx, id, uid, req.Plate, req.Category); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes one of the caller's vehicles.
func (h *VehicleHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vehicles.DeleteByIDAndOwner(ctx, id, uid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
