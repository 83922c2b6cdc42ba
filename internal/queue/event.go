// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification types emitted by the session lifecycle and the reminder
// scheduler.  The delivery side decides what a type means in terms of
// channel (email, SMS); the core only names the event.
const (
	NoticeReservation   = "RESERVATION"
	NoticeEntry         = "ENTRY"
	NoticeExit          = "EXIT"
	NoticePayment       = "PAYMENT"
	NoticeEntryReminder = "ENTRY_REMINDER"
	NoticeExitReminder  = "EXIT_REMINDER"
	NoticeOverdue       = "OVERDUE"
	NoticeExpiry        = "EXPIRY"
)

// Notification is published for every session event.  It carries enough
// information for downstream consumers to deliver a message or feed
// analytics without querying the primary database.
type Notification struct {
	SessionID uint64 `json:"session_id"`
	Type      string `json:"type"`
	UserID    uint64 `json:"user_id"`
	VehicleID uint64 `json:"vehicle_id"`
	SlotID    uint64 `json:"slot_id"`
	FeeCents  uint32 `json:"fee_cents,omitempty"`
	EntryTime string `json:"entry_time,omitempty"`
	ExitTime  string `json:"exit_time,omitempty"`
	EmittedAt string `json:"emitted_at"`
}
