package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// RateRepo provides data access to the hourly_rates table and implements
// the RateStore lookup the fee calculator depends on.
type RateRepo struct {
	db *sql.DB
}

// NewRateRepo returns a new RateRepo bound to the given database.
func NewRateRepo(db *sql.DB) *RateRepo { return &RateRepo{db: db} }

// HourlyRateCents returns the rate for a category.  The boolean is false
// when the category has no configured rate; that is not an error here —
// the fee projection decides how to surface it.
func (r *RateRepo) HourlyRateCents(ctx context.Context, category string) (uint32, bool, error) {
	var rate uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT rate_cents_hour FROM hourly_rates WHERE category = ?`,
		strings.ToUpper(strings.TrimSpace(category))).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

// Upsert creates or replaces the rate for a category.
func (r *RateRepo) Upsert(ctx context.Context, category string, rateCentsHour uint32) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hourly_rates (category, rate_cents_hour) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE rate_cents_hour = VALUES(rate_cents_hour)`,
		strings.ToUpper(strings.TrimSpace(category)), rateCentsHour)
	return err
}

// List returns every configured rate ordered by category.
func (r *RateRepo) List(ctx context.Context) ([]model.HourlyRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, rate_cents_hour, updated_at FROM hourly_rates ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.HourlyRate
	for rows.Next() {
		var hr model.HourlyRate
		if err := rows.Scan(&hr.ID, &hr.Category, &hr.RateCentsHour, &hr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, hr)
	}
	return out, rows.Err()
}

// Delete removes the rate for a category.
func (r *RateRepo) Delete(ctx context.Context, category string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM hourly_rates WHERE category = ?`,
		strings.ToUpper(strings.TrimSpace(category)))
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
