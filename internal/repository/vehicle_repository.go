package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// VehicleRepo provides data access to the vehicles table.  The core only
// consumes ownership and category facts; the CRUD methods serve the
// vehicle management endpoints.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo returns a new VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = `id, owner_id, plate, category, created_at, updated_at`

func scanVehicle(row interface{ Scan(...interface{}) error }) (*model.Vehicle, error) {
	var v model.Vehicle
	err := row.Scan(&v.ID, &v.OwnerID, &v.Plate, &v.Category, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a vehicle and populates its generated ID.  Plates are
// normalized to upper case and unique.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (owner_id, plate, category) VALUES (?, ?, ?)`,
		v.OwnerID, v.Plate, v.Category)
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
	v.ID = uint64(id)
	return nil
}

// GetByID fetches one vehicle.  Returns ErrNotFound for unknown IDs.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// ListByOwner returns all vehicles registered by a user.
func (r *VehicleRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE owner_id = ? ORDER BY plate`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpdateByIDAndOwner updates plate and category, scoped to the owner so
// users cannot edit someone else's vehicle.  Returns ErrNotFound when no
// row matched.
func (r *VehicleRepo) UpdateByIDAndOwner(ctx context.Context, id, ownerID uint64, plate, category string) error {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET plate = ?, category = ? WHERE id = ? AND owner_id = ?`,
		plate, category, id, ownerID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes a vehicle, scoped to the owner.
func (r *VehicleRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vehicles WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
