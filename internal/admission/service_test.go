package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/seminarly/backend/internal/fault"
	"github.com/seminarly/backend/internal/models"
	"github.com/seminarly/backend/pkg/queue"
)

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CountBySeminar(ctx context.Context, seminarID uuid.UUID) (int, error) {
	args := m.Called(ctx, seminarID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, userID, seminarID uuid.UUID, maxVacancies *int) (*models.Registration, error) {
	args := m.Called(ctx, userID, seminarID, maxVacancies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	args := m.Called(ctx, userID, seminarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, userID, seminarID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, seminarID)
	return args.Bool(0), args.Error(1)
}

// MockAlertQueue is a mock implementation of AlertQueue.
type MockAlertQueue struct {
	mock.Mock
}

func (m *MockAlertQueue) EnqueueCapacityAlert(ctx context.Context, payload queue.CapacityAlertPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// stubSeminarReader returns a fixed seminar without mock bookkeeping, safe for
// concurrent use.
type stubSeminarReader struct {
	sem *models.Seminar
}

func (s *stubSeminarReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error) {
	if s.sem != nil && s.sem.ID == id {
		return s.sem, nil
	}
	return nil, nil
}

func newTestService(sem *models.Seminar, store Store, alerts AlertQueue) *Service {
	svc := NewService(&stubSeminarReader{sem: sem}, store, NewGuard(store), alerts, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func futureSeminar(max *int) *models.Seminar {
	return &models.Seminar{
		ID:          uuid.New(),
		Title:       "Distributed Systems",
		ScheduledAt: time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
		Active:      true,
		Location:    models.Location{ID: uuid.New(), Name: "Room A", MaxVacancies: max},
	}
}

func TestAdmitPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10

	t.Run("unknown seminar", func(t *testing.T) {
		svc := newTestService(nil, new(MockStore), nil)
		_, err := svc.Admit(ctx, userID, uuid.New())
		assert.True(t, fault.IsKind(err, fault.KindNotFound))
	})

	t.Run("inactive seminar is closed", func(t *testing.T) {
		sem := futureSeminar(&max)
		sem.Active = false
		svc := newTestService(sem, new(MockStore), nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindSeminarClosed))
	})

	t.Run("past seminar is closed", func(t *testing.T) {
		sem := futureSeminar(&max)
		sem.ScheduledAt = time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
		svc := newTestService(sem, new(MockStore), nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindSeminarClosed))
	})

	t.Run("existing registration wins over capacity", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(&models.Registration{ID: uuid.New()}, nil)

		svc := newTestService(sem, store, nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindAlreadyRegistered))
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("full seminar", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(10, nil)

		svc := newTestService(sem, store, nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindSeminarFull))
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdmitSuccess(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10
	sem := futureSeminar(&max)
	reg := &models.Registration{ID: uuid.New(), UserID: userID, SeminarID: sem.ID}

	store := new(MockStore)
	store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
	store.On("CountBySeminar", ctx, sem.ID).Return(3, nil)
	store.On("Insert", ctx, userID, sem.ID, &max).Return(reg, nil)

	svc := newTestService(sem, store, nil)
	got, err := svc.Admit(ctx, userID, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)
}

func TestAdmitNearCapacityAlert(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10
	sem := futureSeminar(&max)
	reg := &models.Registration{ID: uuid.New(), UserID: userID, SeminarID: sem.ID}

	store := new(MockStore)
	store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
	// pre-admit count 7, post-admit count 8 => ratio 0.8 crosses the threshold
	store.On("CountBySeminar", ctx, sem.ID).Return(7, nil).Once()
	store.On("Insert", ctx, userID, sem.ID, &max).Return(reg, nil)
	store.On("CountBySeminar", ctx, sem.ID).Return(8, nil)

	alerts := new(MockAlertQueue)
	alerts.On("EnqueueCapacityAlert", ctx, queue.CapacityAlertPayload{
		SeminarID:    sem.ID,
		Registered:   8,
		MaxVacancies: 10,
		Occupancy:    0.8,
	}).Return(nil)

	svc := newTestService(sem, store, alerts)
	_, err := svc.Admit(ctx, userID, sem.ID)
	require.NoError(t, err)
	alerts.AssertExpectations(t)
}

func TestAdmitStoreConflicts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10

	t.Run("duplicate maps to already registered", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(3, nil)
		store.On("Insert", ctx, userID, sem.ID, &max).Return(nil, ErrDuplicateRegistration)

		svc := newTestService(sem, store, nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindAlreadyRegistered))
	})

	t.Run("capacity lost in transaction maps to seminar full", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(9, nil)
		store.On("Insert", ctx, userID, sem.ID, &max).Return(nil, ErrCapacityExhausted)

		svc := newTestService(sem, store, nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindSeminarFull))
	})

	t.Run("write conflict is retried transparently", func(t *testing.T) {
		sem := futureSeminar(&max)
		reg := &models.Registration{ID: uuid.New(), UserID: userID, SeminarID: sem.ID}
		conflict := &pgconn.PgError{Code: "40001"}

		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(3, nil)
		store.On("Insert", ctx, userID, sem.ID, &max).Return(nil, conflict).Twice()
		store.On("Insert", ctx, userID, sem.ID, &max).Return(reg, nil).Once()

		svc := newTestService(sem, store, nil)
		got, err := svc.Admit(ctx, userID, sem.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.ID, got.ID)
		store.AssertNumberOfCalls(t, "Insert", 3)
	})

	t.Run("persistent write conflict surfaces", func(t *testing.T) {
		sem := futureSeminar(&max)
		conflict := &pgconn.PgError{Code: "40001"}

		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(3, nil)
		store.On("Insert", ctx, userID, sem.ID, &max).Return(nil, conflict)

		svc := newTestService(sem, store, nil)
		_, err := svc.Admit(ctx, userID, sem.ID)
		require.Error(t, err)
		store.AssertNumberOfCalls(t, "Insert", admitRetries)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10

	t.Run("removes registration", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Delete", ctx, userID, sem.ID).Return(true, nil)
		store.On("CountBySeminar", ctx, sem.ID).Return(2, nil)

		svc := newTestService(sem, store, nil)
		require.NoError(t, svc.Cancel(ctx, userID, sem.ID))
	})

	t.Run("not registered", func(t *testing.T) {
		sem := futureSeminar(&max)
		store := new(MockStore)
		store.On("Delete", ctx, userID, sem.ID).Return(false, nil)

		svc := newTestService(sem, store, nil)
		err := svc.Cancel(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindNotRegistered))
	})

	t.Run("past seminar cannot be cancelled", func(t *testing.T) {
		sem := futureSeminar(&max)
		sem.ScheduledAt = time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
		store := new(MockStore)

		svc := newTestService(sem, store, nil)
		err := svc.Cancel(ctx, userID, sem.ID)
		assert.True(t, fault.IsKind(err, fault.KindSeminarClosed))
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	max := 10
	sem := futureSeminar(&max)

	t.Run("registered", func(t *testing.T) {
		reg := &models.Registration{ID: uuid.New(), UserID: userID, SeminarID: sem.ID}
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(reg, nil)

		svc := newTestService(sem, store, nil)
		status, err := svc.Status(ctx, userID, sem.ID)
		require.NoError(t, err)
		assert.True(t, status.Registered)
		assert.Equal(t, reg.ID, status.Registration.ID)
	})

	t.Run("not registered", func(t *testing.T) {
		store := new(MockStore)
		store.On("Get", ctx, userID, sem.ID).Return(nil, nil)

		svc := newTestService(sem, store, nil)
		status, err := svc.Status(ctx, userID, sem.ID)
		require.NoError(t, err)
		assert.False(t, status.Registered)
		assert.Nil(t, status.Registration)
	})
}

// memStore enforces capacity and uniqueness under a mutex, mirroring the
// database's atomic admit for the race test below.
type memStore struct {
	mu   sync.Mutex
	regs map[[2]uuid.UUID]*models.Registration
}

func newMemStore() *memStore {
	return &memStore{regs: make(map[[2]uuid.UUID]*models.Registration)}
}

func (s *memStore) CountBySeminar(ctx context.Context, seminarID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key := range s.regs {
		if key[1] == seminarID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) Get(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[[2]uuid.UUID{userID, seminarID}], nil
}

func (s *memStore) Insert(ctx context.Context, userID, seminarID uuid.UUID, maxVacancies *int) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{userID, seminarID}
	if s.regs[key] != nil {
		return nil, ErrDuplicateRegistration
	}
	if maxVacancies != nil && *maxVacancies > 0 {
		count := 0
		for k := range s.regs {
			if k[1] == seminarID {
				count++
			}
		}
		if count >= *maxVacancies {
			return nil, ErrCapacityExhausted
		}
	}
	reg := &models.Registration{ID: uuid.New(), UserID: userID, SeminarID: seminarID, CreatedAt: time.Now()}
	s.regs[key] = reg
	return reg, nil
}

func (s *memStore) Delete(ctx context.Context, userID, seminarID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{userID, seminarID}
	if s.regs[key] == nil {
		return false, nil
	}
	delete(s.regs, key)
	return true, nil
}

func TestAdmitLastSeatRace(t *testing.T) {
	ctx := context.Background()
	max := 1
	sem := futureSeminar(&max)
	store := newMemStore()
	svc := newTestService(sem, store, nil)

	userA, userB := uuid.New(), uuid.New()
	errs := make([]error, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = svc.Admit(ctx, userA, sem.ID) }()
	go func() { defer wg.Done(); _, errs[1] = svc.Admit(ctx, userB, sem.ID) }()
	wg.Wait()

	succeeded, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case fault.IsKind(err, fault.KindSeminarFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, full)

	count, err := store.CountBySeminar(ctx, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdmitSameUserTwice(t *testing.T) {
	ctx := context.Background()
	max := 10
	sem := futureSeminar(&max)
	store := newMemStore()
	svc := newTestService(sem, store, nil)
	userID := uuid.New()

	_, err := svc.Admit(ctx, userID, sem.ID)
	require.NoError(t, err)

	_, err = svc.Admit(ctx, userID, sem.ID)
	assert.True(t, fault.IsKind(err, fault.KindAlreadyRegistered))

	count, err := store.CountBySeminar(ctx, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
