package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// In-memory stores mirroring the conditional-update semantics of the SQL
// repositories, so the lifecycle tests exercise the same win/lose races.

type memSessions struct {
	mu   sync.Mutex
	seq  uint64
	rows map[uint64]*model.ParkingSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: make(map[uint64]*model.ParkingSession)}
}

func (m *memSessions) Create(_ context.Context, s *model.ParkingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = m.seq
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id uint64) (*model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) FindActiveByVehicle(_ context.Context, vehicleID uint64) (*model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.VehicleID == vehicleID && s.Status == model.SessionActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSessions) Transition(_ context.Context, id uint64, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (m *memSessions) Activate(_ context.Context, id uint64, entry time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.Status != model.SessionReserved {
		return false, nil
	}
	s.Status = model.SessionActive
	s.EntryTime = entry
	return true, nil
}

func (m *memSessions) Complete(_ context.Context, id uint64, exit time.Time, feeCents uint32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.Status != model.SessionActive {
		return false, nil
	}
	s.Status = model.SessionCompleted
	s.ExitTime = &exit
	s.FeeCents = feeCents
	return true, nil
}

func (m *memSessions) SetPaymentStatus(_ context.Context, id uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.PaymentStatus = status
	return nil
}

func (m *memSessions) MarkReminderSent(_ context.Context, id uint64, kind repository.ReminderKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	var flag *bool
	switch kind {
	case repository.ReminderEntry:
		flag = &s.EntryReminderSent
	case repository.ReminderExit:
		flag = &s.ExitReminderSent
	case repository.ReminderOverdue:
		flag = &s.OverdueReminderSent
	default:
		return false, repository.ErrNotFound
	}
	if *flag {
		return false, nil
	}
	*flag = true
	return true, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID uint64) ([]model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ParkingSession
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) ListByStatus(_ context.Context, status string) ([]model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ParkingSession
	for _, s := range m.rows {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) CompletedStats(_ context.Context, from, to time.Time) (uint64, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count, revenue uint64
	for _, s := range m.rows {
		if s.Status != model.SessionCompleted || s.ExitTime == nil {
			continue
		}
		if s.ExitTime.Before(from) || !s.ExitTime.Before(to) {
			continue
		}
		count++
		revenue += uint64(s.FeeCents)
	}
	return count, revenue, nil
}

type memSlots struct {
	mu   sync.Mutex
	rows map[uint64]*model.ParkingSlot
}

func newMemSlots(slots ...model.ParkingSlot) *memSlots {
	m := &memSlots{rows: make(map[uint64]*model.ParkingSlot)}
	for i := range slots {
		cp := slots[i]
		m.rows[cp.ID] = &cp
	}
	return m
}

func (m *memSlots) GetByID(_ context.Context, id uint64) (*model.ParkingSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) Occupy(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.IsOccupied || !s.IsActive {
		return repository.ErrConflict
	}
	s.IsOccupied = true
	return nil
}

func (m *memSlots) Release(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsOccupied = false
	return nil
}

func (m *memSlots) occupied(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].IsOccupied
}

type memVehicles map[uint64]model.Vehicle

func (m memVehicles) GetByID(_ context.Context, id uint64) (*model.Vehicle, error) {
	v, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

type memRates map[string]uint32

func (m memRates) HourlyRateCents(_ context.Context, category string) (uint32, bool, error) {
	r, ok := m[category]
	return r, ok, nil
}

type memUsers map[uint64]string

func (m memUsers) RoleOf(_ context.Context, userID uint64) (string, error) {
	role, ok := m[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

// recorder captures dispatched notifications for assertions.
type recorder struct {
	mu      sync.Mutex
	notices []queue.Notification
}

func (r *recorder) Send(_ context.Context, n queue.Notification) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Type
	}
	return out
}

func (r *recorder) has(typ string) bool {
	for _, t := range r.types() {
		if t == typ {
			return true
		}
	}
	return false
}
