package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"scheduled-payments/internal/model"
)

// ── mock ScheduleStore ──

type mockScheduleStore struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]*model.ScheduleRecord
	listErr error
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{records: make(map[uint]*model.ScheduleRecord)}
}

func (m *mockScheduleStore) Create(_ context.Context, record *model.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	record.ID = m.nextID
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockScheduleStore) FindByID(_ context.Context, userID, id uint) (*model.ScheduleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockScheduleStore) ListFuture(_ context.Context, userID uint, today time.Time) ([]model.ScheduleRecord, error) {
	return m.list(func(r *model.ScheduleRecord) bool { return r.UserID == userID }, today)
}

func (m *mockScheduleStore) ListFutureByChannel(_ context.Context, userID uint, channelID int, today time.Time) ([]model.ScheduleRecord, error) {
	return m.list(func(r *model.ScheduleRecord) bool { return r.UserID == userID && r.ChannelID == channelID }, today)
}

func (m *mockScheduleStore) list(match func(*model.ScheduleRecord) bool, today time.Time) ([]model.ScheduleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.ScheduleRecord
	for _, r := range m.records {
		if !match(r) || r.Complete {
			continue
		}
		if r.EndDate != nil && r.EndDate.Before(today) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockScheduleStore) MarkComplete(_ context.Context, record *model.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[record.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Complete = true
	record.Complete = true
	return nil
}

func (m *mockScheduleStore) Delete(_ context.Context, userID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

// ── mock ContactStore ──

type mockContactStore struct {
	nextID   uint
	contacts map[uint]model.Contact
	failFor  map[uint]bool
}

func newMockContactStore() *mockContactStore {
	return &mockContactStore{contacts: make(map[uint]model.Contact)}
}

func (m *mockContactStore) GetOrCreate(_ context.Context, userID uint, name, phone string) (*model.Contact, error) {
	for _, c := range m.contacts {
		if c.UserID == userID && c.Phone == phone {
			if name != "" {
				c.Name = name
				m.contacts[c.ID] = c
			}
			return &c, nil
		}
	}
	m.nextID++
	c := model.Contact{ID: m.nextID, UserID: userID, Name: name, Phone: phone}
	m.contacts[c.ID] = c
	return &c, nil
}

func (m *mockContactStore) FindByIDs(_ context.Context, ids []uint) ([]model.Contact, error) {
	var out []model.Contact
	for _, id := range ids {
		if m.failFor[id] {
			return nil, errors.New("contacts table locked")
		}
		if c, ok := m.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactStore) ListByUser(_ context.Context, userID uint) ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range m.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── mock UserStore ──

type mockUserStore struct {
	users   []model.User
	listErr error
}

func (m *mockUserStore) FindByID(_ context.Context, id uint) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStore) ListWithOpenSchedules(_ context.Context, _ time.Time) ([]model.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.users, nil
}

// ── mock Notifier ──

type mockNotifier struct {
	mu      sync.Mutex
	sent    []Notification
	failFor map[uint]bool
}

func (m *mockNotifier) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[n.ScheduleID] {
		return errors.New("telegram unavailable")
	}
	m.sent = append(m.sent, n)
	return nil
}

// ── mock KeyValueSetter ──

type mockKV struct {
	keys map[string]time.Duration
}

func (m *mockKV) SetOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *mockKV) Del(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}
