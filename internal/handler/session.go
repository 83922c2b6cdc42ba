package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// SessionHandler exposes the session lifecycle over HTTP.  All state
// decisions live in the service; handlers only parse, authenticate and
// map errors.
type SessionHandler struct {
	Sessions *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{Sessions: s}
}

type bookReq struct {
	VehicleID    uint64     `json:"vehicle_id"`
	SlotID       uint64     `json:"slot_id"`
	PlannedEntry time.Time  `json:"planned_entry"`
	PlannedExit  *time.Time `json:"planned_exit"`
}

type walkInReq struct {
	VehicleID uint64 `json:"vehicle_id"`
	SlotID    uint64 `json:"slot_id"`
}

type entryReq struct {
	EntryTime *time.Time `json:"entry_time"`
}

type exitReq struct {
	ExitTime *time.Time `json:"exit_time"`
}

type paymentReq struct {
	Status string `json:"status"` // PENDING | PAID | CANCELLED
}

// Book creates a reservation for one of the caller's vehicles.
func (h *SessionHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil || req.VehicleID == 0 || req.SlotID == 0 || req.PlannedEntry.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_id, slot_id and planned_entry required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.BookSlot(ctx, uid, req.VehicleID, req.SlotID, req.PlannedEntry, req.PlannedExit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// WalkIn starts an ACTIVE session without a prior reservation.  Operator
// endpoint: the vehicle owner is taken from the vehicle record.
func (h *SessionHandler) WalkIn(c echo.Context) error {
	var req walkInReq
	if err := c.Bind(&req); err != nil || req.VehicleID == 0 || req.SlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_id and slot_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.StartWalkInSession(ctx, req.VehicleID, req.SlotID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Activate converts a reservation to an active session (operator/admin).
func (h *SessionHandler) Activate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req entryReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.ActivateReservation(ctx, uid, id, req.EntryTime)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// End completes an active session and returns it with the final fee.
func (h *SessionHandler) End(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req exitReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.EndSession(ctx, id, req.ExitTime)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Cancel cancels the caller's own reservation.
func (h *SessionHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.CancelReservation(ctx, uid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForceCancel cancels any RESERVED or ACTIVE session regardless of owner.
// Role is enforced by the router.
func (h *SessionHandler) ForceCancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.CancelSession(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Payment updates the payment status of a session.
func (h *SessionHandler) Payment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.ProcessPayment(ctx, id, req.Status); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Fee returns the fee projection for a session: final for completed
// sessions, provisional as-of-now for active ones.
func (h *SessionHandler) Fee(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	fee, err := h.Sessions.CalculateFee(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": id, "fee_cents": fee})
}

// Mine lists the caller's sessions, newest first.
func (h *SessionHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Sessions.GetUserSessions(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": list})
}

// Active lists all ACTIVE sessions (operator/admin).
func (h *SessionHandler) Active(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Sessions.GetActiveSessions(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": list})
}

// Reservations lists all RESERVED sessions (operator/admin).
func (h *SessionHandler) Reservations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Sessions.GetReservations(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": list})
}

// Revenue aggregates completed sessions over [from, to).  Both bounds
// are RFC3339 query parameters; `to` defaults to now and `from` to 24h
// before `to`.
func (h *SessionHandler) Revenue(c echo.Context) error {
	to := time.Now().UTC()
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid 'to' timestamp"})
		}
		to = t.UTC()
	}
	from := to.Add(-24 * time.Hour)
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid 'from' timestamp"})
		}
		from = t.UTC()
	}
	if !to.After(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "'to' must be after 'from'"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, revenue, err := h.Sessions.RevenueStats(ctx, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":          from,
		"to":            to,
		"completed":     count,
		"revenue_cents": revenue,
	})
}
