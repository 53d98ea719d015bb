package application

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sool-market/service-reservation/internal/domain/reservation"
	"github.com/sool-market/service-reservation/internal/platform/kafka"
	"github.com/sool-market/service-reservation/internal/session"
	"github.com/sool-market/service-reservation/internal/upstream"
)

type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) Prepare(ctx context.Context, req upstream.PrepareRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPlatform) Confirm(ctx context.Context, req upstream.ConfirmRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPlatform) Change(ctx context.Context, req upstream.ChangeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPlatform) Cancel(ctx context.Context, reservationID int64) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockPlatform) DeleteHistory(ctx context.Context, reservationID int64) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockPlatform) MyReservations(ctx context.Context, offset int) ([]*reservation.Reservation, bool, error) {
	args := m.Called(ctx, offset)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*reservation.Reservation), args.Bool(1), args.Error(2)
}

func (m *MockPlatform) Brewery(ctx context.Context, breweryID int64) (reservation.Brewery, error) {
	args := m.Called(ctx, breweryID)
	return args.Get(0).(reservation.Brewery), args.Error(1)
}

func (m *MockPlatform) SearchBreweries(ctx context.Context, keyword string) ([]reservation.BrewerySummary, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reservation.BrewerySummary), args.Error(1)
}

type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) UnavailableDates(ctx context.Context, experienceID int64, year, month int) reservation.UnavailableDateSet {
	args := m.Called(ctx, experienceID, year, month)
	return args.Get(0).(reservation.UnavailableDateSet)
}

type MockSlotFeed struct {
	mock.Mock
}

func (m *MockSlotFeed) Fetch(ctx context.Context, key string, seq, experienceID int64, date string) (reservation.SlotAvailability, error) {
	args := m.Called(ctx, key, seq, experienceID, date)
	return args.Get(0).(reservation.SlotAvailability), args.Error(1)
}

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByOwnerID(ctx context.Context, ownerID string, offset, limit int) ([]*reservation.Reservation, int64, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*reservation.Reservation), args.Get(1).(int64), args.Error(2)
}

func (m *MockReservationRepository) Upsert(ctx context.Context, r *reservation.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) Update(ctx context.Context, r *reservation.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

// memStore is an in-memory SessionStore with the same versioning rules as RedisStore.
type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Load(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *memStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.data[sess.ID]; ok {
		var stored session.Session
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
		if stored.Version != sess.Version {
			return session.ErrStaleSession
		}
	} else if sess.Version != 0 {
		return session.ErrSessionNotFound
	}
	sess.Version++
	return s.put(sess)
}

func (s *memStore) Replace(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Version = 1
	return s.put(sess)
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *memStore) put(sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.data[sess.ID] = raw
	s.saves++
	return nil
}
