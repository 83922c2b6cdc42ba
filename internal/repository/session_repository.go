package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// SessionRepo provides data access to the parking_sessions table.  All
// timestamp columns are stored in UTC (the DSN forces loc=UTC).  Status
// transitions are single conditional UPDATE statements gated on the
// current status column; the RowsAffected count tells the caller whether
// the transition actually happened, which makes transitions on one
// session linearizable without explicit row locks.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, user_id, vehicle_id, slot_id, reserved_at, entry_time, exit_time,
	status, payment_status, fee_cents, entry_reminder_sent, exit_reminder_sent,
	overdue_reminder_sent, created_at, updated_at`

// scanSession reads one row into a model.ParkingSession.  Nullable
// columns (reserved_at, exit_time) are mapped to pointers.
func scanSession(row interface{ Scan(...interface{}) error }) (*model.ParkingSession, error) {
	var (
		s          model.ParkingSession
		reservedAt sql.NullTime
		exitTime   sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.VehicleID, &s.SlotID, &reservedAt, &s.EntryTime, &exitTime,
		&s.Status, &s.PaymentStatus, &s.FeeCents, &s.EntryReminderSent, &s.ExitReminderSent,
		&s.OverdueReminderSent, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reservedAt.Valid {
		t := reservedAt.Time.UTC()
		s.ReservedAt = &t
	}
	if exitTime.Valid {
		t := exitTime.Time.UTC()
		s.ExitTime = &t
	}
	return &s, nil
}

// Create inserts a new session row and populates the generated ID.  The
// caller supplies the full initial state (status, payment status, times
// and flags); created_at/updated_at default in the database.
func (r *SessionRepo) Create(ctx context.Context, s *model.ParkingSession) error {
	const q = `INSERT INTO parking_sessions
		(user_id, vehicle_id, slot_id, reserved_at, entry_time, exit_time, status, payment_status, fee_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var reservedAt, exitTime interface{}
	if s.ReservedAt != nil {
		reservedAt = s.ReservedAt.UTC()
	}
	if s.ExitTime != nil {
		exitTime = s.ExitTime.UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		s.UserID, s.VehicleID, s.SlotID, reservedAt, s.EntryTime.UTC(), exitTime,
		s.Status, s.PaymentStatus, s.FeeCents,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches one session.  Returns ErrNotFound for unknown IDs.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// FindActiveByVehicle returns the ACTIVE session for a vehicle, if any.
// A vehicle may hold at most one ACTIVE session; LIMIT 1 is defensive.
func (r *SessionRepo) FindActiveByVehicle(ctx context.Context, vehicleID uint64) (*model.ParkingSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE vehicle_id = ? AND status = ? LIMIT 1`,
		vehicleID, model.SessionActive)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// Transition conditionally moves a session between statuses.  The WHERE
// clause pins the expected current status; zero affected rows means the
// session had already left that status.
func (r *SessionRepo) Transition(ctx context.Context, id uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_sessions SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Activate moves RESERVED to ACTIVE, overwriting the planned entry time
// with the actual one.
func (r *SessionRepo) Activate(ctx context.Context, id uint64, entry time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_sessions SET status = ?, entry_time = ? WHERE id = ? AND status = ?`,
		model.SessionActive, entry.UTC(), id, model.SessionReserved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Complete moves ACTIVE to COMPLETED and records exit time and fee.
func (r *SessionRepo) Complete(ctx context.Context, id uint64, exit time.Time, feeCents uint32) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_sessions SET status = ?, exit_time = ?, fee_cents = ? WHERE id = ? AND status = ?`,
		model.SessionCompleted, exit.UTC(), feeCents, id, model.SessionActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetPaymentStatus updates the payment column independently of the
// session status.
func (r *SessionRepo) SetPaymentStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_sessions SET payment_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "unknown id" from "status unchanged".
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM parking_sessions WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// reminderColumn maps a ReminderKind to its flag column.  The map keeps
// column names out of caller-supplied input.
var reminderColumn = map[ReminderKind]string{
	ReminderEntry:   "entry_reminder_sent",
	ReminderExit:    "exit_reminder_sent",
	ReminderOverdue: "overdue_reminder_sent",
}

// MarkReminderSent flips a reminder flag from 0 to 1.  The conditional
// WHERE makes the flip race-free: only one caller observes true, so a
// reminder is emitted at most once per session even if two scheduler
// instances fire the same deadline.
func (r *SessionRepo) MarkReminderSent(ctx context.Context, id uint64, kind ReminderKind) (bool, error) {
	col, ok := reminderColumn[kind]
	if !ok {
		return false, errors.New("unknown reminder kind")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE parking_sessions SET `+col+` = 1 WHERE id = ? AND `+col+` = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByUser returns all sessions belonging to a user, newest first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListByStatus returns all sessions in one status.  The scheduler uses
// this at startup to seed its deadline queue with RESERVED and ACTIVE
// sessions.
func (r *SessionRepo) ListByStatus(ctx context.Context, status string) ([]model.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE status = ? ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]model.ParkingSession, error) {
	var out []model.ParkingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CompletedStats counts completed sessions with an exit time inside
// [from, to) and sums their fees in cents.
func (r *SessionRepo) CompletedStats(ctx context.Context, from, to time.Time) (uint64, uint64, error) {
	var count, revenue uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fee_cents), 0) FROM parking_sessions
		 WHERE status = ? AND exit_time >= ? AND exit_time < ?`,
		model.SessionCompleted, from.UTC(), to.UTC()).Scan(&count, &revenue)
	return count, revenue, err
}
