package model

import "time"

// Session status values.  RESERVED and ACTIVE are the two live states;
// COMPLETED, CANCELLED and EXPIRED are terminal.  A reservation becomes
// ACTIVE when a guard activates it, or a session may be created directly
// in ACTIVE as a walk-in.
const (
	SessionReserved  = "RESERVED"
	SessionActive    = "ACTIVE"
	SessionCompleted = "COMPLETED"
	SessionCancelled = "CANCELLED"
	SessionExpired   = "EXPIRED"
)

// Payment status values, orthogonal to the session status.
const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentCancelled = "CANCELLED"
)

// ParkingSession tracks one vehicle's claim on one slot over a time
// interval.  Vehicle, slot and user are opaque foreign keys owned by
// their own record stores.
//
// Fields:
//  ID                  – primary key identifier.
//  UserID              – user the session belongs to.
//  VehicleID           – vehicle occupying (or about to occupy) the slot.
//  SlotID              – slot being claimed.
//  ReservedAt          – when the reservation was made (nil for walk-ins).
//  EntryTime           – planned entry for a reservation; overwritten with
//                        the actual entry at activation.
//  ExitTime            – planned exit for a reservation; actual exit once
//                        the session completes.  Nil until known.
//  Status              – session state (RESERVED, ACTIVE, COMPLETED,
//                        CANCELLED, EXPIRED).
//  PaymentStatus       – PENDING, PAID or CANCELLED.
//  FeeCents            – fee in cents, 0 until completion sets it.
//  EntryReminderSent   – entry reminder already emitted.
//  ExitReminderSent    – exit reminder already emitted.
//  OverdueReminderSent – overdue notice already emitted.
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type ParkingSession struct {
	ID                  uint64     `json:"id"`
	UserID              uint64     `json:"user_id"`
	VehicleID           uint64     `json:"vehicle_id"`
	SlotID              uint64     `json:"slot_id"`
	ReservedAt          *time.Time `json:"reserved_at"`
	EntryTime           time.Time  `json:"entry_time"`
	ExitTime            *time.Time `json:"exit_time"`
	Status              string     `json:"status"`
	PaymentStatus       string     `json:"payment_status"`
	FeeCents            uint32     `json:"fee_cents"`
	EntryReminderSent   bool       `json:"entry_reminder_sent"`
	ExitReminderSent    bool       `json:"exit_reminder_sent"`
	OverdueReminderSent bool       `json:"overdue_reminder_sent"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the session can no longer change state.
func (s *ParkingSession) IsTerminal() bool {
	switch s.Status {
	case SessionCompleted, SessionCancelled, SessionExpired:
		return true
	}
	return false
}
