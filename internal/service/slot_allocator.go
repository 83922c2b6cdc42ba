package service

import (
	"context"
	"log"

	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// SlotAllocator enforces the occupancy invariant on parking slots: a
// slot is occupied if and only if exactly one ACTIVE session references
// it.  All occupancy mutations in the codebase go through this type, and
// the underlying store guarantees that of two concurrent Reserve calls
// on one slot at most one succeeds.
type SlotAllocator struct {
	slots repository.SlotStore
}

// NewSlotAllocator returns an allocator over the given slot store.
func NewSlotAllocator(slots repository.SlotStore) *SlotAllocator {
	return &SlotAllocator{slots: slots}
}

// Available reports whether a slot exists, is active and is currently
// free.  It is a read-only precondition check for booking; reservations
// never occupy the slot, so availability at booking time is advisory
// only — activation re-arbitrates atomically.
func (a *SlotAllocator) Available(ctx context.Context, slotID uint64) error {
	slot, err := a.slots.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if !slot.IsActive || slot.IsOccupied {
		return repository.ErrConflict
	}
	return nil
}

// Reserve marks the slot occupied.  The check and the write are a
// single atomic store operation; ErrConflict means another session
// claimed the slot first or the slot is inactive.
func (a *SlotAllocator) Reserve(ctx context.Context, slotID uint64) error {
	return a.slots.Occupy(ctx, slotID)
}

// Release frees the slot.  Releasing an already free slot is a no-op,
// which makes the call safe to repeat from compensation paths.
func (a *SlotAllocator) Release(ctx context.Context, slotID uint64) error {
	if err := a.slots.Release(ctx, slotID); err != nil {
		log.Printf("allocator: release slot %d failed: %v", slotID, err)
		return err
	}
	return nil
}
