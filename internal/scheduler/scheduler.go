// Package scheduler runs the time-driven side of the session lifecycle:
// entry and exit reminders, overdue notices and reservation expiry.
//
// Instead of scanning every live session each tick, the scheduler keeps
// a min-heap of per-session deadlines (entry−window, exit−window,
// exit+grace, entry+expiry grace).  The session service pushes deadlines
// as transitions commit, and the heap is seeded from the store at
// startup so reminders survive restarts.  Each firing re-reads the
// session and is gated by the store's conditional reminder flags, so
// every reminder is emitted at most once per session no matter how
// often a deadline fires.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// deadline kinds.
type kind int

const (
	kindEntryReminder kind = iota
	kindExitReminder
	kindOverdue
	kindExpire
)

// deadline is one pending check for one session.
type deadline struct {
	sessionID uint64
	kind      kind
	at        time.Time
}

// deadlineHeap orders deadlines by their due time.
type deadlineHeap []deadline

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x interface{}) { *h = append(*h, x.(deadline)) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	*h = old[:n-1]
	return d
}

// Config carries the reminder windows and the tick interval.  Zero
// values fall back to the defaults from the product rules: remind 10
// minutes before entry and exit, flag overdue 15 minutes past exit,
// expire unredeemed reservations 30 minutes past their planned entry,
// tick once a minute.
type Config struct {
	Interval     time.Duration
	EntryWindow  time.Duration
	ExitWindow   time.Duration
	OverdueGrace time.Duration
	ExpiryGrace  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.EntryWindow <= 0 {
		c.EntryWindow = 10 * time.Minute
	}
	if c.ExitWindow <= 0 {
		c.ExitWindow = 10 * time.Minute
	}
	if c.OverdueGrace <= 0 {
		c.OverdueGrace = 15 * time.Minute
	}
	if c.ExpiryGrace <= 0 {
		c.ExpiryGrace = 30 * time.Minute
	}
	return c
}

// Scheduler is the periodic reminder process.  It implements
// service.Planner so the session service can feed it deadlines as
// transitions commit.  The loop is single-threaded; only the heap is
// shared with request-handling goroutines and it is guarded by a mutex.
type Scheduler struct {
	cfg      Config
	sessions repository.SessionStore
	notify   service.Dispatcher

	mu   sync.Mutex
	heap deadlineHeap

	now  func() time.Time // injectable clock for tests
	stop chan struct{}
	done chan struct{}
}

// New builds a scheduler over the given session store and dispatcher.
func New(cfg Config, sessions repository.SessionStore, notify service.Dispatcher) *Scheduler {
	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		notify:   notify,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// push queues one deadline.
func (s *Scheduler) push(sessionID uint64, k kind, at time.Time) {
	s.mu.Lock()
	heap.Push(&s.heap, deadline{sessionID: sessionID, kind: k, at: at})
	s.mu.Unlock()
}

// SessionBooked queues the entry reminder and the reservation expiry
// deadlines for a fresh reservation.
func (s *Scheduler) SessionBooked(sess *model.ParkingSession) {
	if !sess.EntryReminderSent {
		s.push(sess.ID, kindEntryReminder, sess.EntryTime.Add(-s.cfg.EntryWindow))
	}
	s.push(sess.ID, kindExpire, sess.EntryTime.Add(s.cfg.ExpiryGrace))
}

// SessionActivated queues the exit reminder and overdue deadlines for a
// session that just became ACTIVE.  Walk-ins without a planned exit get
// no exit-side deadlines.
func (s *Scheduler) SessionActivated(sess *model.ParkingSession) {
	if sess.ExitTime == nil {
		return
	}
	if !sess.ExitReminderSent {
		s.push(sess.ID, kindExitReminder, sess.ExitTime.Add(-s.cfg.ExitWindow))
	}
	if !sess.OverdueReminderSent {
		s.push(sess.ID, kindOverdue, sess.ExitTime.Add(s.cfg.OverdueGrace))
	}
}

// Seed loads all live sessions from the store and queues their
// deadlines.  Call once before Run so reminders survive restarts.
func (s *Scheduler) Seed(ctx context.Context) error {
	reserved, err := s.sessions.ListByStatus(ctx, model.SessionReserved)
	if err != nil {
		return err
	}
	for i := range reserved {
		s.SessionBooked(&reserved[i])
	}
	active, err := s.sessions.ListByStatus(ctx, model.SessionActive)
	if err != nil {
		return err
	}
	for i := range active {
		s.SessionActivated(&active[i])
	}
	log.Printf("scheduler: seeded %d reserved and %d active sessions", len(reserved), len(active))
	return nil
}

// Run drives the tick loop until Stop is called.  Ticks are aligned to
// wall-clock interval boundaries; when processing overruns the interval
// the next tick fires immediately instead of drifting.
func (s *Scheduler) Run() {
	defer close(s.done)
	for {
		target := s.now().Truncate(s.cfg.Interval).Add(s.cfg.Interval)
		wait := time.Until(target)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			s.tick()
		}
	}
}

// Stop terminates the loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// tick processes every due deadline.  A panic or error in one deadline
// is logged and must never kill the loop; the next interval always runs.
func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: tick panicked: %v", r)
		}
	}()
	now := s.now()
	for {
		d, ok := s.popDue(now)
		if !ok {
			return
		}
		if err := s.process(d, now); err != nil {
			log.Printf("scheduler: deadline %d for session %d failed: %v", d.kind, d.sessionID, err)
		}
	}
}

// popDue removes and returns the earliest deadline not after now.
func (s *Scheduler) popDue(now time.Time) (deadline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 || s.heap[0].at.After(now) {
		return deadline{}, false
	}
	return heap.Pop(&s.heap).(deadline), true
}

// process re-reads the session and applies one due deadline.  The
// session row is authoritative: a deadline queued for a session that has
// since moved on emits nothing.
func (s *Scheduler) process(d deadline, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := s.sessions.GetByID(ctx, d.sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	switch d.kind {
	case kindEntryReminder:
		// Remind only while the planned entry is still ahead; a guard
		// may already have activated, or the reservation expired.
		if sess.Status != model.SessionReserved || sess.EntryReminderSent || !sess.EntryTime.After(now) {
			return nil
		}
		return s.emitOnce(ctx, sess, repository.ReminderEntry, queue.NoticeEntryReminder)

	case kindExitReminder:
		// Pointless once the exit time has passed; the overdue path
		// takes over from there.
		if sess.Status != model.SessionActive || sess.ExitReminderSent ||
			sess.ExitTime == nil || !sess.ExitTime.After(now) {
			return nil
		}
		return s.emitOnce(ctx, sess, repository.ReminderExit, queue.NoticeExitReminder)

	case kindOverdue:
		if sess.Status != model.SessionActive || sess.OverdueReminderSent ||
			sess.ExitTime == nil || now.Before(sess.ExitTime.Add(s.cfg.OverdueGrace)) {
			return nil
		}
		return s.emitOnce(ctx, sess, repository.ReminderOverdue, queue.NoticeOverdue)

	case kindExpire:
		if sess.Status != model.SessionReserved || now.Before(sess.EntryTime.Add(s.cfg.ExpiryGrace)) {
			return nil
		}
		ok, err := s.sessions.Transition(ctx, sess.ID, model.SessionReserved, model.SessionExpired)
		if err != nil || !ok {
			return err
		}
		if sess.PaymentStatus == model.PaymentPending {
			if err := s.sessions.SetPaymentStatus(ctx, sess.ID, model.PaymentCancelled); err != nil {
				log.Printf("scheduler: void payment for expired session %d failed: %v", sess.ID, err)
			}
		}
		s.notify.Send(ctx, s.notification(sess, queue.NoticeExpiry))
		return nil
	}
	return nil
}

// emitOnce flips the session's reminder flag and dispatches the
// notification only when this caller won the flip.  The conditional
// update in the store is what makes the reminder at-most-once.
func (s *Scheduler) emitOnce(ctx context.Context, sess *model.ParkingSession, flag repository.ReminderKind, notice string) error {
	won, err := s.sessions.MarkReminderSent(ctx, sess.ID, flag)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	s.notify.Send(ctx, s.notification(sess, notice))
	return nil
}

func (s *Scheduler) notification(sess *model.ParkingSession, typ string) queue.Notification {
	n := queue.Notification{
		SessionID: sess.ID,
		Type:      typ,
		UserID:    sess.UserID,
		VehicleID: sess.VehicleID,
		SlotID:    sess.SlotID,
		EntryTime: sess.EntryTime.UTC().Format(time.RFC3339),
		EmittedAt: s.now().Format(time.RFC3339),
	}
	if sess.ExitTime != nil {
		n.ExitTime = sess.ExitTime.UTC().Format(time.RFC3339)
	}
	return n
}
