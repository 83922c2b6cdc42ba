package model

import "time"

// ParkingSlot describes a physical parking slot.  Occupancy must mirror
// whether exactly one ACTIVE session references the slot; reservations do
// not occupy.  The flag is only ever mutated through the allocator so that
// concurrent claims are serialized by the store.
//
// Fields:
//  ID         – primary key identifier.
//  Label      – human readable slot designation (e.g. "B-14").
//  IsOccupied – whether a vehicle currently occupies the slot.
//  IsActive   – whether the slot is usable at all.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type ParkingSlot struct {
	ID         uint64    `json:"id"`
	Label      string    `json:"label"`
	IsOccupied bool      `json:"is_occupied"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
