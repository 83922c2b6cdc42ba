package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// ErrInvalidRange is returned when a reservation's planned exit does not
// lie after its planned entry.
var ErrInvalidRange = errors.New("planned exit must be after planned entry")

// ErrInvalidPaymentStatus is returned when ProcessPayment receives a
// value outside the payment status enumeration.
var ErrInvalidPaymentStatus = errors.New("invalid payment status")

// Planner receives session deadlines as they become known so the
// reminder scheduler can queue them.  Implementations must not block;
// the session service calls these inline after a committed transition.
type Planner interface {
	// SessionBooked is called after a reservation is created.
	SessionBooked(s *model.ParkingSession)
	// SessionActivated is called after a session becomes ACTIVE (by
	// activation or walk-in).
	SessionActivated(s *model.ParkingSession)
}

// nopPlanner is used when no scheduler is wired (tests, tooling).
type nopPlanner struct{}

func (nopPlanner) SessionBooked(*model.ParkingSession)    {}
func (nopPlanner) SessionActivated(*model.ParkingSession) {}

// SessionService owns the session lifecycle state machine.  It is the
// only code that creates sessions and the only code that moves them
// between states; the occupancy flag is mutated exclusively through the
// allocator.  Methods are safe for concurrent use: per-session ordering
// is guaranteed by the store's conditional transitions and per-slot
// arbitration by the allocator's atomic Reserve.
type SessionService struct {
	sessions repository.SessionStore
	slots    *SlotAllocator
	vehicles repository.VehicleStore
	rates    repository.RateStore
	users    repository.UserDirectory
	notify   Dispatcher
	planner  Planner

	now func() time.Time // injectable clock for tests
}

// NewSessionService wires the lifecycle manager.  planner may be nil
// when no reminder scheduler runs.
func NewSessionService(
	sessions repository.SessionStore,
	slots *SlotAllocator,
	vehicles repository.VehicleStore,
	rates repository.RateStore,
	users repository.UserDirectory,
	notify Dispatcher,
	planner Planner,
) *SessionService {
	if planner == nil {
		planner = nopPlanner{}
	}
	return &SessionService{
		sessions: sessions,
		slots:    slots,
		vehicles: vehicles,
		rates:    rates,
		users:    users,
		notify:   notify,
		planner:  planner,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// notification builds the outbound event for a session.  Dispatch is
// fire-and-forget; failures never surface to the triggering transition.
func (s *SessionService) notification(sess *model.ParkingSession, typ string) queue.Notification {
	n := queue.Notification{
		SessionID: sess.ID,
		Type:      typ,
		UserID:    sess.UserID,
		VehicleID: sess.VehicleID,
		SlotID:    sess.SlotID,
		FeeCents:  sess.FeeCents,
		EntryTime: sess.EntryTime.UTC().Format(time.RFC3339),
		EmittedAt: s.now().Format(time.RFC3339),
	}
	if sess.ExitTime != nil {
		n.ExitTime = sess.ExitTime.UTC().Format(time.RFC3339)
	}
	return n
}

// BookSlot creates a reservation.  The vehicle must belong to the user,
// the slot must be active and currently free, and the vehicle must not
// already be parked.  The slot is NOT marked occupied — reservations
// never occupy; activation arbitrates the slot atomically later.
func (s *SessionService) BookSlot(ctx context.Context, userID, vehicleID, slotID uint64, plannedEntry time.Time, plannedExit *time.Time) (*model.ParkingSession, error) {
	if plannedExit != nil && !plannedExit.After(plannedEntry) {
		return nil, ErrInvalidRange
	}
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.OwnerID != userID {
		return nil, repository.ErrUnauthorized
	}
	if err := s.slots.Available(ctx, slotID); err != nil {
		return nil, err
	}
	if _, err := s.sessions.FindActiveByVehicle(ctx, vehicleID); err == nil {
		return nil, repository.ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	reservedAt := s.now()
	sess := &model.ParkingSession{
		UserID:        userID,
		VehicleID:     vehicleID,
		SlotID:        slotID,
		ReservedAt:    &reservedAt,
		EntryTime:     plannedEntry.UTC(),
		Status:        model.SessionReserved,
		PaymentStatus: model.PaymentPending,
	}
	if plannedExit != nil {
		t := plannedExit.UTC()
		sess.ExitTime = &t
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.planner.SessionBooked(sess)
	s.notify.Send(ctx, s.notification(sess, queue.NoticeReservation))
	return sess, nil
}

// ActivateReservation converts RESERVED to ACTIVE.  The activator must
// hold an elevated role.  The slot is claimed first; if the status
// transition then loses a race (cancelled or activated concurrently) the
// claim is rolled back, so the occupancy invariant holds on every path.
func (s *SessionService) ActivateReservation(ctx context.Context, activatorID, reservationID uint64, actualEntry *time.Time) (*model.ParkingSession, error) {
	role, err := s.users.RoleOf(ctx, activatorID)
	if err != nil {
		return nil, err
	}
	if !model.ElevatedRole(role) {
		return nil, repository.ErrUnauthorized
	}
	sess, err := s.sessions.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionReserved {
		return nil, repository.ErrConflict
	}

	entry := s.now()
	if actualEntry != nil {
		entry = actualEntry.UTC()
	}
	if err := s.slots.Reserve(ctx, sess.SlotID); err != nil {
		return nil, err
	}
	ok, err := s.sessions.Activate(ctx, reservationID, entry)
	if err != nil || !ok {
		// The reservation left RESERVED between our read and the CAS;
		// give the slot back.
		_ = s.slots.Release(ctx, sess.SlotID)
		if err != nil {
			return nil, err
		}
		return nil, repository.ErrConflict
	}
	sess.Status = model.SessionActive
	sess.EntryTime = entry
	s.planner.SessionActivated(sess)
	s.notify.Send(ctx, s.notification(sess, queue.NoticeEntry))
	return sess, nil
}

// StartWalkInSession creates a session directly in ACTIVE, skipping the
// reservation phase.  The slot is claimed atomically before the session
// row exists; a failed insert releases it again.
func (s *SessionService) StartWalkInSession(ctx context.Context, vehicleID, slotID uint64) (*model.ParkingSession, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.FindActiveByVehicle(ctx, vehicleID); err == nil {
		return nil, repository.ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := s.slots.Reserve(ctx, slotID); err != nil {
		return nil, err
	}
	sess := &model.ParkingSession{
		UserID:        vehicle.OwnerID,
		VehicleID:     vehicleID,
		SlotID:        slotID,
		EntryTime:     s.now(),
		Status:        model.SessionActive,
		PaymentStatus: model.PaymentPending,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		_ = s.slots.Release(ctx, slotID)
		return nil, err
	}
	s.planner.SessionActivated(sess)
	s.notify.Send(ctx, s.notification(sess, queue.NoticeEntry))
	return sess, nil
}

// EndSession completes an ACTIVE session: the fee is computed from the
// actual entry and exit times, the status moves to COMPLETED and the
// slot is released.  The status CAS commits first; a failed release is
// logged but never rolls the completion back, because the session record
// is the source of truth and occupancy repair is idempotent.
func (s *SessionService) EndSession(ctx context.Context, sessionID uint64, exitTime *time.Time) (*model.ParkingSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionActive {
		return nil, repository.ErrConflict
	}
	exit := s.now()
	if exitTime != nil {
		exit = exitTime.UTC()
	}

	fee, err := s.feeForSession(ctx, sess, exit)
	if err != nil {
		if !errors.Is(err, ErrRateNotConfigured) {
			return nil, err
		}
		// A session must always be able to complete; an unpriced
		// category parks for free rather than stranding the vehicle.
		log.Printf("session: no rate for vehicle %d, completing session %d with zero fee", sess.VehicleID, sess.ID)
		fee = 0
	}

	ok, err := s.sessions.Complete(ctx, sessionID, exit, fee)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrConflict
	}
	_ = s.slots.Release(ctx, sess.SlotID)

	sess.Status = model.SessionCompleted
	sess.ExitTime = &exit
	sess.FeeCents = fee
	s.notify.Send(ctx, s.notification(sess, queue.NoticeExit))
	return sess, nil
}

// CancelReservation cancels a RESERVED session on behalf of its owner.
// The slot is not touched: reservations never occupy it.
func (s *SessionService) CancelReservation(ctx context.Context, userID, sessionID uint64) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return repository.ErrUnauthorized
	}
	ok, err := s.sessions.Transition(ctx, sessionID, model.SessionReserved, model.SessionCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrConflict
	}
	s.voidPendingPayment(ctx, sess)
	return nil
}

// CancelSession cancels a RESERVED or ACTIVE session (privileged; the
// caller's role is enforced by the transport layer).  Cancelling an
// ACTIVE session releases its slot.
func (s *SessionService) CancelSession(ctx context.Context, sessionID uint64) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	switch sess.Status {
	case model.SessionActive:
		ok, err := s.sessions.Transition(ctx, sessionID, model.SessionActive, model.SessionCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrConflict
		}
		_ = s.slots.Release(ctx, sess.SlotID)
	case model.SessionReserved:
		ok, err := s.sessions.Transition(ctx, sessionID, model.SessionReserved, model.SessionCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrConflict
		}
	default:
		return repository.ErrConflict
	}
	s.voidPendingPayment(ctx, sess)
	return nil
}

// voidPendingPayment cancels the payment of a session that will never be
// billed.  Best effort: the session transition has already committed.
func (s *SessionService) voidPendingPayment(ctx context.Context, sess *model.ParkingSession) {
	if sess.PaymentStatus != model.PaymentPending {
		return
	}
	if err := s.sessions.SetPaymentStatus(ctx, sess.ID, model.PaymentCancelled); err != nil {
		log.Printf("session: void payment for session %d failed: %v", sess.ID, err)
	}
}

// ProcessPayment sets the payment status independently of the session
// status.  Moving to PAID emits a payment notification.
func (s *SessionService) ProcessPayment(ctx context.Context, sessionID uint64, status string) error {
	switch status {
	case model.PaymentPending, model.PaymentPaid, model.PaymentCancelled:
	default:
		return ErrInvalidPaymentStatus
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.SetPaymentStatus(ctx, sessionID, status); err != nil {
		return err
	}
	if status == model.PaymentPaid && sess.PaymentStatus != model.PaymentPaid {
		sess.PaymentStatus = status
		s.notify.Send(ctx, s.notification(sess, queue.NoticePayment))
	}
	return nil
}

// CalculateFee is the read-only fee projection.  For a session without
// an exit time the current moment serves as a provisional exit.  Unlike
// completion, a missing rate surfaces as ErrRateNotConfigured here so
// callers can tell "free" from "unpriced".
func (s *SessionService) CalculateFee(ctx context.Context, sessionID uint64) (uint32, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	exit := s.now()
	if sess.ExitTime != nil {
		exit = *sess.ExitTime
	}
	return s.feeForSession(ctx, sess, exit)
}

// feeForSession resolves the vehicle's hourly rate and prices the stay.
func (s *SessionService) feeForSession(ctx context.Context, sess *model.ParkingSession, exit time.Time) (uint32, error) {
	vehicle, err := s.vehicles.GetByID(ctx, sess.VehicleID)
	if err != nil {
		return 0, err
	}
	rate, found, err := s.rates.HourlyRateCents(ctx, vehicle.Category)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrRateNotConfigured
	}
	return FeeCents(sess.EntryTime, exit, rate), nil
}

// GetUserSessions lists all sessions of one user, newest first.
func (s *SessionService) GetUserSessions(ctx context.Context, userID uint64) ([]model.ParkingSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// GetActiveSessions lists all currently ACTIVE sessions.
func (s *SessionService) GetActiveSessions(ctx context.Context) ([]model.ParkingSession, error) {
	return s.sessions.ListByStatus(ctx, model.SessionActive)
}

// GetReservations lists all currently RESERVED sessions.
func (s *SessionService) GetReservations(ctx context.Context) ([]model.ParkingSession, error) {
	return s.sessions.ListByStatus(ctx, model.SessionReserved)
}

// RevenueStats aggregates completed sessions over [from, to): how many
// completed and the summed fee in cents.
func (s *SessionService) RevenueStats(ctx context.Context, from, to time.Time) (uint64, uint64, error) {
	return s.sessions.CompletedStats(ctx, from, to)
}
