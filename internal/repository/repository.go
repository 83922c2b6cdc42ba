package repository

import (
	"context"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// Reminder flag column selectors for SessionStore.MarkReminderSent.
type ReminderKind string

const (
	ReminderEntry   ReminderKind = "entry"
	ReminderExit    ReminderKind = "exit"
	ReminderOverdue ReminderKind = "overdue"
)

// SessionStore is the persistence contract the session lifecycle and the
// reminder scheduler depend on.  Every state transition is a conditional
// update gated on the current status so that transitions on a single
// session are linearizable: the store reports whether the row actually
// moved, and a false result means another caller got there first.
type SessionStore interface {
	Create(ctx context.Context, s *model.ParkingSession) error
	GetByID(ctx context.Context, id uint64) (*model.ParkingSession, error)

	// FindActiveByVehicle returns the vehicle's ACTIVE session, or
	// ErrNotFound when the vehicle is not currently parked.
	FindActiveByVehicle(ctx context.Context, vehicleID uint64) (*model.ParkingSession, error)

	// Transition moves the session from one status to another.  It
	// returns false when the session was not in the expected status.
	Transition(ctx context.Context, id uint64, from, to string) (bool, error)

	// Activate moves RESERVED to ACTIVE and overwrites the planned entry
	// with the actual one.
	Activate(ctx context.Context, id uint64, entry time.Time) (bool, error)

	// Complete moves ACTIVE to COMPLETED, recording the actual exit and
	// the computed fee.
	Complete(ctx context.Context, id uint64, exit time.Time, feeCents uint32) (bool, error)

	SetPaymentStatus(ctx context.Context, id uint64, status string) error

	// MarkReminderSent flips one reminder flag from false to true.  It
	// returns false when the flag was already set, which callers use to
	// guarantee at-most-once reminder emission across restarts.
	MarkReminderSent(ctx context.Context, id uint64, kind ReminderKind) (bool, error)

	ListByUser(ctx context.Context, userID uint64) ([]model.ParkingSession, error)
	ListByStatus(ctx context.Context, status string) ([]model.ParkingSession, error)

	// CompletedStats aggregates completed sessions whose exit time falls
	// inside [from, to): a count and the summed fee in cents.
	CompletedStats(ctx context.Context, from, to time.Time) (uint64, uint64, error)
}

// SlotStore guards the single piece of shared mutable state in the core:
// the occupancy flag.  Occupy must be atomic with respect to concurrent
// callers; for two concurrent Occupy calls on the same slot at most one
// may succeed.
type SlotStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ParkingSlot, error)

	// Occupy marks a free, active slot as occupied.  It returns
	// ErrConflict when the slot is occupied or inactive and ErrNotFound
	// when it does not exist.
	Occupy(ctx context.Context, id uint64) error

	// Release clears the occupancy flag.  Releasing an already free slot
	// is a no-op.
	Release(ctx context.Context, id uint64) error
}

// VehicleStore provides the vehicle-ownership and category facts the
// core needs.  Vehicle records themselves are managed by the CRUD layer.
type VehicleStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Vehicle, error)
}

// RateStore looks up the hourly rate for a vehicle category.  The second
// return value is false when no rate is configured for the category.
type RateStore interface {
	HourlyRateCents(ctx context.Context, category string) (uint32, bool, error)
}

// UserDirectory exposes the role facts needed for privileged operations.
type UserDirectory interface {
	RoleOf(ctx context.Context, userID uint64) (string, error)
}
