package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

const (
	customerID = 1
	operatorID = 2
	strangerID = 3

	carID  = 10
	slotID = 100
)

type fixture struct {
	svc      *SessionService
	sessions *memSessions
	slots    *memSlots
	sent     *recorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: newMemSessions(),
		slots: newMemSlots(
			model.ParkingSlot{ID: slotID, Label: "A-01", IsActive: true},
			model.ParkingSlot{ID: 101, Label: "A-02", IsActive: false},
		),
		sent: &recorder{},
		now:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	vehicles := memVehicles{carID: {ID: carID, OwnerID: customerID, Plate: "AB123CD", Category: "CAR"}}
	rates := memRates{"CAR": 200}
	users := memUsers{customerID: model.RoleCustomer, operatorID: model.RoleOperator, strangerID: model.RoleCustomer}

	f.svc = NewSessionService(f.sessions, NewSlotAllocator(f.slots), vehicles, rates, users, f.sent, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) book(t *testing.T) *model.ParkingSession {
	t.Helper()
	entry := f.now.Add(time.Hour)
	exit := entry.Add(2 * time.Hour)
	sess, err := f.svc.BookSlot(context.Background(), customerID, carID, slotID, entry, &exit)
	if err != nil {
		t.Fatalf("BookSlot() error = %v", err)
	}
	return sess
}

func (f *fixture) activate(t *testing.T, id uint64) *model.ParkingSession {
	t.Helper()
	sess, err := f.svc.ActivateReservation(context.Background(), operatorID, id, nil)
	if err != nil {
		t.Fatalf("ActivateReservation() error = %v", err)
	}
	return sess
}

func TestBookSlotKeepsSlotFree(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	if sess.Status != model.SessionReserved {
		t.Errorf("Status = %q; want %q", sess.Status, model.SessionReserved)
	}
	if sess.PaymentStatus != model.PaymentPending {
		t.Errorf("PaymentStatus = %q; want %q", sess.PaymentStatus, model.PaymentPending)
	}
	if f.slots.occupied(slotID) {
		t.Error("booking must not occupy the slot")
	}
	if !f.sent.has(queue.NoticeReservation) {
		t.Errorf("notices = %v; want a %s", f.sent.types(), queue.NoticeReservation)
	}
}

func TestBookSlotRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	entry := f.now.Add(2 * time.Hour)
	exit := entry.Add(-time.Minute)
	_, err := f.svc.BookSlot(context.Background(), customerID, carID, slotID, entry, &exit)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("BookSlot() error = %v; want ErrInvalidRange", err)
	}
}

func TestBookSlotRejectsForeignVehicle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BookSlot(context.Background(), strangerID, carID, slotID, f.now.Add(time.Hour), nil)
	if !errors.Is(err, repository.ErrUnauthorized) {
		t.Fatalf("BookSlot() error = %v; want ErrUnauthorized", err)
	}
}

func TestBookSlotRejectsInactiveSlot(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BookSlot(context.Background(), customerID, carID, 101, f.now.Add(time.Hour), nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("BookSlot() error = %v; want ErrConflict", err)
	}
}

func TestBookSlotRejectsParkedVehicle(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.activate(t, sess.ID)

	_, err := f.svc.BookSlot(context.Background(), customerID, carID, slotID, f.now.Add(3*time.Hour), nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("BookSlot() with parked vehicle error = %v; want ErrConflict", err)
	}
}

func TestActivateOccupiesSlot(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	got := f.activate(t, sess.ID)
	if got.Status != model.SessionActive {
		t.Errorf("Status = %q; want %q", got.Status, model.SessionActive)
	}
	if !f.slots.occupied(slotID) {
		t.Error("activation must occupy the slot")
	}
	if !f.sent.has(queue.NoticeEntry) {
		t.Errorf("notices = %v; want a %s", f.sent.types(), queue.NoticeEntry)
	}
}

func TestActivateRequiresElevatedRole(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	_, err := f.svc.ActivateReservation(context.Background(), customerID, sess.ID, nil)
	if !errors.Is(err, repository.ErrUnauthorized) {
		t.Fatalf("ActivateReservation() error = %v; want ErrUnauthorized", err)
	}
	if f.slots.occupied(slotID) {
		t.Error("rejected activation must not occupy the slot")
	}
}

func TestActivateCancelledReservationConflicts(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	if err := f.svc.CancelReservation(context.Background(), customerID, sess.ID); err != nil {
		t.Fatalf("CancelReservation() error = %v", err)
	}

	_, err := f.svc.ActivateReservation(context.Background(), operatorID, sess.ID, nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("ActivateReservation() error = %v; want ErrConflict", err)
	}
	if f.slots.occupied(slotID) {
		t.Error("losing activation must give the slot back")
	}
}

func TestConcurrentActivationSingleWinner(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ActivateReservation(context.Background(), operatorID, sess.ID, nil)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrConflict):
		default:
			t.Fatalf("unexpected activation error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d; want exactly 1", wins)
	}
	if !f.slots.occupied(slotID) {
		t.Error("winner must leave the slot occupied")
	}
}

func TestWalkInOccupiesSlotImmediately(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.StartWalkInSession(context.Background(), carID, slotID)
	if err != nil {
		t.Fatalf("StartWalkInSession() error = %v", err)
	}
	if sess.Status != model.SessionActive {
		t.Errorf("Status = %q; want %q", sess.Status, model.SessionActive)
	}
	if sess.UserID != customerID {
		t.Errorf("UserID = %d; want vehicle owner %d", sess.UserID, customerID)
	}
	if sess.ReservedAt != nil {
		t.Error("walk-in must have no reservation timestamp")
	}
	if !f.slots.occupied(slotID) {
		t.Error("walk-in must occupy the slot")
	}
}

func TestWalkInOccupiedSlotConflicts(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.StartWalkInSession(context.Background(), carID, slotID); err != nil {
		t.Fatalf("first walk-in error = %v", err)
	}
	_, err := f.svc.StartWalkInSession(context.Background(), carID, slotID)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second walk-in error = %v; want ErrConflict", err)
	}
}

func TestEndSessionComputesFeeAndReleasesSlot(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.now = f.now.Add(time.Hour) // actual entry at planned time
	f.activate(t, sess.ID)

	// 2h01m at 200 cents/h rounds up to 3 hours.
	exit := f.now.Add(2*time.Hour + time.Minute)
	done, err := f.svc.EndSession(context.Background(), sess.ID, &exit)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if done.Status != model.SessionCompleted {
		t.Errorf("Status = %q; want %q", done.Status, model.SessionCompleted)
	}
	if done.FeeCents != 600 {
		t.Errorf("FeeCents = %d; want 600", done.FeeCents)
	}
	if f.slots.occupied(slotID) {
		t.Error("completion must release the slot")
	}
	if !f.sent.has(queue.NoticeExit) {
		t.Errorf("notices = %v; want a %s", f.sent.types(), queue.NoticeExit)
	}
}

func TestEndSessionTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.activate(t, sess.ID)

	if _, err := f.svc.EndSession(context.Background(), sess.ID, nil); err != nil {
		t.Fatalf("first EndSession() error = %v", err)
	}
	_, err := f.svc.EndSession(context.Background(), sess.ID, nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second EndSession() error = %v; want ErrConflict", err)
	}
}

func TestEndSessionUnpricedCategoryCompletesFree(t *testing.T) {
	f := newFixture(t)
	f.svc.rates = memRates{} // no rate for CAR
	sess := f.book(t)
	f.activate(t, sess.ID)

	done, err := f.svc.EndSession(context.Background(), sess.ID, nil)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if done.FeeCents != 0 {
		t.Errorf("FeeCents = %d; want 0 for unpriced category", done.FeeCents)
	}
	if done.Status != model.SessionCompleted {
		t.Errorf("Status = %q; want %q", done.Status, model.SessionCompleted)
	}
}

func TestCalculateFeeSurfacesMissingRate(t *testing.T) {
	f := newFixture(t)
	f.svc.rates = memRates{}
	sess := f.book(t)

	_, err := f.svc.CalculateFee(context.Background(), sess.ID)
	if !errors.Is(err, ErrRateNotConfigured) {
		t.Fatalf("CalculateFee() error = %v; want ErrRateNotConfigured", err)
	}
}

func TestCalculateFeeProvisionalForActive(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.StartWalkInSession(context.Background(), carID, slotID)
	if err != nil {
		t.Fatalf("StartWalkInSession() error = %v", err)
	}

	f.now = f.now.Add(90 * time.Minute) // 1h30m in, bills 2 started hours
	fee, err := f.svc.CalculateFee(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("CalculateFee() error = %v", err)
	}
	if fee != 400 {
		t.Errorf("fee = %d; want 400", fee)
	}
}

func TestCancelReservationOwnerOnly(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	err := f.svc.CancelReservation(context.Background(), strangerID, sess.ID)
	if !errors.Is(err, repository.ErrUnauthorized) {
		t.Fatalf("foreign cancel error = %v; want ErrUnauthorized", err)
	}

	if err := f.svc.CancelReservation(context.Background(), customerID, sess.ID); err != nil {
		t.Fatalf("owner cancel error = %v", err)
	}
	got, _ := f.sessions.GetByID(context.Background(), sess.ID)
	if got.Status != model.SessionCancelled {
		t.Errorf("Status = %q; want %q", got.Status, model.SessionCancelled)
	}
	if got.PaymentStatus != model.PaymentCancelled {
		t.Errorf("PaymentStatus = %q; want %q", got.PaymentStatus, model.PaymentCancelled)
	}
}

func TestCancelActiveSessionReleasesSlot(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.activate(t, sess.ID)

	if err := f.svc.CancelSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("CancelSession() error = %v", err)
	}
	if f.slots.occupied(slotID) {
		t.Error("cancelling an active session must release the slot")
	}
	got, _ := f.sessions.GetByID(context.Background(), sess.ID)
	if got.Status != model.SessionCancelled {
		t.Errorf("Status = %q; want %q", got.Status, model.SessionCancelled)
	}
}

func TestCancelCompletedSessionConflicts(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.activate(t, sess.ID)
	if _, err := f.svc.EndSession(context.Background(), sess.ID, nil); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	err := f.svc.CancelSession(context.Background(), sess.ID)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("CancelSession() error = %v; want ErrConflict", err)
	}
}

func TestProcessPayment(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)

	if err := f.svc.ProcessPayment(context.Background(), sess.ID, "SETTLED"); !errors.Is(err, ErrInvalidPaymentStatus) {
		t.Fatalf("ProcessPayment(SETTLED) error = %v; want ErrInvalidPaymentStatus", err)
	}

	if err := f.svc.ProcessPayment(context.Background(), sess.ID, model.PaymentPaid); err != nil {
		t.Fatalf("ProcessPayment(PAID) error = %v", err)
	}
	got, _ := f.sessions.GetByID(context.Background(), sess.ID)
	if got.PaymentStatus != model.PaymentPaid {
		t.Errorf("PaymentStatus = %q; want %q", got.PaymentStatus, model.PaymentPaid)
	}
	if !f.sent.has(queue.NoticePayment) {
		t.Errorf("notices = %v; want a %s", f.sent.types(), queue.NoticePayment)
	}
}

func TestRevenueStats(t *testing.T) {
	f := newFixture(t)
	sess := f.book(t)
	f.activate(t, sess.ID)
	exit := f.now.Add(time.Hour)
	if _, err := f.svc.EndSession(context.Background(), sess.ID, &exit); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	count, revenue, err := f.svc.RevenueStats(context.Background(), f.now, f.now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("RevenueStats() error = %v", err)
	}
	if count != 1 || revenue != 200 {
		t.Errorf("stats = (%d, %d); want (1, 200)", count, revenue)
	}

	count, revenue, err = f.svc.RevenueStats(context.Background(), f.now.Add(-48*time.Hour), f.now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("RevenueStats() error = %v", err)
	}
	if count != 0 || revenue != 0 {
		t.Errorf("out-of-range stats = (%d, %d); want (0, 0)", count, revenue)
	}
}
