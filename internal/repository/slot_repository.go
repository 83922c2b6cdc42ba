package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// SlotRepo provides data access to the parking_slots table.  The
// occupancy flag is the one piece of state contended by concurrent
// session operations, so Occupy is a single conditional UPDATE rather
// than a read-check-write sequence: of two concurrent claims on the same
// slot exactly one sees RowsAffected == 1.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, label, is_occupied, is_active, created_at, updated_at`

func scanSlot(row interface{ Scan(...interface{}) error }) (*model.ParkingSlot, error) {
	var s model.ParkingSlot
	err := row.Scan(&s.ID, &s.Label, &s.IsOccupied, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a slot and populates its generated ID.  Labels are
// unique; a duplicate insert returns ErrDuplicate.
func (r *SlotRepo) Create(ctx context.Context, s *model.ParkingSlot) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO parking_slots (label, is_occupied, is_active) VALUES (?, ?, ?)`,
		s.Label, s.IsOccupied, s.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches one slot.  Returns ErrNotFound for unknown IDs.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingSlot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM parking_slots WHERE id = ?`, id)
	s, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns all slots ordered by label.
func (r *SlotRepo) List(ctx context.Context) ([]model.ParkingSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM parking_slots ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ParkingSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Occupy atomically claims a free, active slot.  The availability check
// and the occupancy write are one statement, so concurrent claims cannot
// both succeed.  When no row moves, a follow-up read decides between
// ErrNotFound and ErrConflict.
func (r *SlotRepo) Occupy(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_slots SET is_occupied = 1 WHERE id = ? AND is_occupied = 0 AND is_active = 1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// Release clears the occupancy flag.  Releasing an already free slot is
// an idempotent no-op; only an unknown ID is an error.
func (r *SlotRepo) Release(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_slots SET is_occupied = 0 WHERE id = ? AND is_occupied = 1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}
	_, err = r.GetByID(ctx, id)
	return err
}

// SetActive toggles whether the slot is usable at all.  Deactivating a
// slot does not touch occupancy; an active session still ends normally.
func (r *SlotRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_slots SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM parking_slots WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes a slot.  Occupied slots cannot be deleted.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM parking_slots WHERE id = ? AND is_occupied = 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}
