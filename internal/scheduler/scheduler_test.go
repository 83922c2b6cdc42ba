package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// fakeStore is an in-memory SessionStore with the same conditional
// semantics as the SQL repository: transitions and reminder flags only
// move when the precondition holds.
type fakeStore struct {
	mu   sync.Mutex
	rows map[uint64]*model.ParkingSession
}

func newFakeStore(sessions ...model.ParkingSession) *fakeStore {
	f := &fakeStore{rows: make(map[uint64]*model.ParkingSession)}
	for i := range sessions {
		cp := sessions[i]
		f.rows[cp.ID] = &cp
	}
	return f
}

func (f *fakeStore) Create(_ context.Context, s *model.ParkingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (*model.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) FindActiveByVehicle(context.Context, uint64) (*model.ParkingSession, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Transition(_ context.Context, id uint64, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeStore) Activate(_ context.Context, id uint64, entry time.Time) (bool, error) {
	return f.Transition(context.Background(), id, model.SessionReserved, model.SessionActive)
}

func (f *fakeStore) Complete(_ context.Context, id uint64, _ time.Time, _ uint32) (bool, error) {
	return f.Transition(context.Background(), id, model.SessionActive, model.SessionCompleted)
}

func (f *fakeStore) SetPaymentStatus(_ context.Context, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.PaymentStatus = status
	return nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id uint64, kind repository.ReminderKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	var flag *bool
	switch kind {
	case repository.ReminderEntry:
		flag = &s.EntryReminderSent
	case repository.ReminderExit:
		flag = &s.ExitReminderSent
	default:
		flag = &s.OverdueReminderSent
	}
	if *flag {
		return false, nil
	}
	*flag = true
	return true, nil
}

func (f *fakeStore) ListByUser(context.Context, uint64) ([]model.ParkingSession, error) {
	return nil, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, status string) ([]model.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ParkingSession
	for _, s := range f.rows {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) CompletedStats(context.Context, time.Time, time.Time) (uint64, uint64, error) {
	return 0, 0, nil
}

type recorder struct {
	mu      sync.Mutex
	notices []queue.Notification
}

func (r *recorder) Send(_ context.Context, n queue.Notification) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.notices {
		if e.Type == typ {
			n++
		}
	}
	return n
}

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestScheduler(store *fakeStore, sent *recorder) *Scheduler {
	s := New(Config{
		Interval:     time.Minute,
		EntryWindow:  10 * time.Minute,
		ExitWindow:   10 * time.Minute,
		OverdueGrace: 15 * time.Minute,
		ExpiryGrace:  30 * time.Minute,
	}, store, sent)
	s.now = func() time.Time { return baseTime }
	return s
}

func reserved(id uint64, entry time.Time, exit *time.Time) model.ParkingSession {
	return model.ParkingSession{
		ID: id, UserID: 1, VehicleID: 1, SlotID: 1,
		EntryTime: entry, ExitTime: exit,
		Status: model.SessionReserved, PaymentStatus: model.PaymentPending,
	}
}

func active(id uint64, entry time.Time, exit *time.Time) model.ParkingSession {
	s := reserved(id, entry, exit)
	s.Status = model.SessionActive
	return s
}

func TestEntryReminderFiresOnce(t *testing.T) {
	entry := baseTime.Add(10 * time.Minute)
	store := newFakeStore(reserved(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	sess, _ := store.GetByID(context.Background(), 1)
	// Duplicate deadlines must still yield one reminder.
	s.SessionBooked(sess)
	s.SessionBooked(sess)
	s.tick()

	if got := sent.count(queue.NoticeEntryReminder); got != 1 {
		t.Fatalf("entry reminders = %d; want 1", got)
	}
	got, _ := store.GetByID(context.Background(), 1)
	if !got.EntryReminderSent {
		t.Error("entry reminder flag must be set after emission")
	}
}

func TestEntryReminderNotDueYet(t *testing.T) {
	entry := baseTime.Add(time.Hour)
	store := newFakeStore(reserved(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	sess, _ := store.GetByID(context.Background(), 1)
	s.SessionBooked(sess)
	s.tick()

	if got := sent.count(queue.NoticeEntryReminder); got != 0 {
		t.Fatalf("entry reminders = %d; want 0 before the window opens", got)
	}
}

func TestEntryReminderSkippedWhenSessionMovedOn(t *testing.T) {
	entry := baseTime.Add(10 * time.Minute)
	store := newFakeStore(active(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	// Deadline queued while the session was RESERVED; by fire time a
	// guard has activated it.
	s.push(1, kindEntryReminder, baseTime)
	s.tick()

	if got := sent.count(queue.NoticeEntryReminder); got != 0 {
		t.Fatalf("entry reminders = %d; want 0 for an activated session", got)
	}
}

func TestEntryReminderSkippedWhenFlagAlreadySet(t *testing.T) {
	entry := baseTime.Add(10 * time.Minute)
	sess := reserved(1, entry, nil)
	sess.EntryReminderSent = true
	store := newFakeStore(sess)
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(1, kindEntryReminder, baseTime)
	s.tick()

	if got := sent.count(queue.NoticeEntryReminder); got != 0 {
		t.Fatalf("entry reminders = %d; want 0 when the flag is set", got)
	}
}

func TestExitReminderBeforePlannedExit(t *testing.T) {
	entry := baseTime.Add(-time.Hour)
	exit := baseTime.Add(10 * time.Minute)
	store := newFakeStore(active(1, entry, &exit))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	sess, _ := store.GetByID(context.Background(), 1)
	s.SessionActivated(sess)
	s.tick()

	if got := sent.count(queue.NoticeExitReminder); got != 1 {
		t.Fatalf("exit reminders = %d; want 1", got)
	}
	// The overdue deadline is not due yet.
	if got := sent.count(queue.NoticeOverdue); got != 0 {
		t.Fatalf("overdue notices = %d; want 0", got)
	}
}

func TestOverdueAfterGrace(t *testing.T) {
	entry := baseTime.Add(-2 * time.Hour)
	exit := baseTime.Add(-15 * time.Minute)
	store := newFakeStore(active(1, entry, &exit))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	sess, _ := store.GetByID(context.Background(), 1)
	s.SessionActivated(sess)
	s.tick()

	if got := sent.count(queue.NoticeOverdue); got != 1 {
		t.Fatalf("overdue notices = %d; want 1", got)
	}
	// Exit reminder is pointless once the planned exit has passed.
	if got := sent.count(queue.NoticeExitReminder); got != 0 {
		t.Fatalf("exit reminders = %d; want 0 after planned exit", got)
	}
}

func TestOverdueSkippedForCompletedSession(t *testing.T) {
	entry := baseTime.Add(-2 * time.Hour)
	exit := baseTime.Add(-15 * time.Minute)
	sess := active(1, entry, &exit)
	sess.Status = model.SessionCompleted
	store := newFakeStore(sess)
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(1, kindOverdue, baseTime)
	s.tick()

	if got := sent.count(queue.NoticeOverdue); got != 0 {
		t.Fatalf("overdue notices = %d; want 0 for a completed session", got)
	}
}

func TestWalkInWithoutExitGetsNoDeadlines(t *testing.T) {
	store := newFakeStore(active(1, baseTime, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	sess, _ := store.GetByID(context.Background(), 1)
	s.SessionActivated(sess)

	s.mu.Lock()
	n := len(s.heap)
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("queued deadlines = %d; want 0 without a planned exit", n)
	}
}

func TestReservationExpiry(t *testing.T) {
	entry := baseTime.Add(-30 * time.Minute)
	store := newFakeStore(reserved(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(1, kindExpire, baseTime)
	s.tick()

	got, _ := store.GetByID(context.Background(), 1)
	if got.Status != model.SessionExpired {
		t.Fatalf("Status = %q; want %q", got.Status, model.SessionExpired)
	}
	if got.PaymentStatus != model.PaymentCancelled {
		t.Errorf("PaymentStatus = %q; want %q", got.PaymentStatus, model.PaymentCancelled)
	}
	if got := sent.count(queue.NoticeExpiry); got != 1 {
		t.Errorf("expiry notices = %d; want 1", got)
	}
}

func TestExpirySkippedWithinGrace(t *testing.T) {
	entry := baseTime.Add(-10 * time.Minute)
	store := newFakeStore(reserved(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(1, kindExpire, baseTime)
	s.tick()

	got, _ := store.GetByID(context.Background(), 1)
	if got.Status != model.SessionReserved {
		t.Fatalf("Status = %q; want %q within the grace period", got.Status, model.SessionReserved)
	}
	if got := sent.count(queue.NoticeExpiry); got != 0 {
		t.Errorf("expiry notices = %d; want 0", got)
	}
}

func TestExpirySkippedForActivatedSession(t *testing.T) {
	entry := baseTime.Add(-30 * time.Minute)
	store := newFakeStore(active(1, entry, nil))
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(1, kindExpire, baseTime)
	s.tick()

	got, _ := store.GetByID(context.Background(), 1)
	if got.Status != model.SessionActive {
		t.Fatalf("Status = %q; want %q", got.Status, model.SessionActive)
	}
}

func TestSeedQueuesLiveSessions(t *testing.T) {
	exit := baseTime.Add(time.Hour)
	store := newFakeStore(
		reserved(1, baseTime.Add(30*time.Minute), nil),
		active(2, baseTime.Add(-time.Hour), &exit),
		func() model.ParkingSession {
			s := reserved(3, baseTime, nil)
			s.Status = model.SessionCompleted
			return s
		}(),
	)
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	s.mu.Lock()
	n := len(s.heap)
	s.mu.Unlock()
	// Reservation: entry reminder + expiry.  Active: exit reminder +
	// overdue.  The completed session contributes nothing.
	if n != 4 {
		t.Fatalf("queued deadlines = %d; want 4", n)
	}
}

func TestUnknownSessionDeadlineIsDropped(t *testing.T) {
	store := newFakeStore()
	sent := &recorder{}
	s := newTestScheduler(store, sent)

	s.push(99, kindEntryReminder, baseTime)
	s.tick()

	s.mu.Lock()
	n := len(s.heap)
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("queued deadlines = %d; want 0 after dropping unknown session", n)
	}
}
