package admission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/fault"
	"github.com/seminarly/backend/internal/models"
	"github.com/seminarly/backend/pkg/queue"
)

// admitRetries bounds transparent retries of the admit transaction on
// storage-level write conflicts before the failure surfaces.
const admitRetries = 3

// SeminarReader resolves a seminar with its location capacity.
type SeminarReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Store is the registration store the service writes through.
type Store interface {
	Counter
	Insert(ctx context.Context, userID, seminarID uuid.UUID, maxVacancies *int) (*models.Registration, error)
	Get(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error)
	Delete(ctx context.Context, userID, seminarID uuid.UUID) (bool, error)
}

// AlertQueue enqueues near-capacity alerts for the monitoring worker.
type AlertQueue interface {
	EnqueueCapacityAlert(ctx context.Context, payload queue.CapacityAlertPayload) error
}

// Status is the outcome of a registration status check.
type Status struct {
	Registered   bool                 `json:"registered"`
	Registration *models.Registration `json:"registration,omitempty"`
}

// Service admits users into seminars and cancels registrations. Capacity and
// uniqueness are ultimately enforced by the store's atomic insert; the
// service's own checks exist to order the error precedence.
type Service struct {
	seminars SeminarReader
	store    Store
	guard    *Guard
	alerts   AlertQueue
	cache    *OccupancyCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an admission service. alerts and cache may be nil.
func NewService(seminars SeminarReader, store Store, guard *Guard, alerts AlertQueue, cache *OccupancyCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		seminars: seminars,
		store:    store,
		guard:    guard,
		alerts:   alerts,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Admit registers the user for the seminar. Precondition failures surface in
// order: seminar closed, already registered, seminar full.
func (s *Service) Admit(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	sem, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, fault.New(fault.KindNotFound, "seminar not found")
	}
	if !sem.Admissible(s.now()) {
		return nil, fault.New(fault.KindSeminarClosed, "seminar is inactive or already held")
	}

	existing, err := s.store.Get(ctx, userID, seminarID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.New(fault.KindAlreadyRegistered, "already registered for this seminar")
	}

	admissible, err := s.guard.Admissible(ctx, sem)
	if err != nil {
		return nil, err
	}
	if !admissible {
		return nil, fault.New(fault.KindSeminarFull, "no seats left for this seminar")
	}

	var reg *models.Registration
	for attempt := 1; ; attempt++ {
		reg, err = s.store.Insert(ctx, userID, seminarID, sem.Location.MaxVacancies)
		if err == nil {
			break
		}
		if isWriteConflict(err) && attempt < admitRetries {
			s.logger.Warn("admit write conflict, retrying",
				zap.String("seminar_id", seminarID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		switch {
		case errors.Is(err, ErrCapacityExhausted):
			return nil, fault.New(fault.KindSeminarFull, "no seats left for this seminar")
		case errors.Is(err, ErrDuplicateRegistration):
			return nil, fault.New(fault.KindAlreadyRegistered, "already registered for this seminar")
		default:
			return nil, err
		}
	}

	s.afterAdmission(ctx, sem)
	return reg, nil
}

// Cancel removes the user's registration, freeing the seat. Self-service
// cancellation is only possible before the seminar's scheduled time.
func (s *Service) Cancel(ctx context.Context, userID, seminarID uuid.UUID) error {
	sem, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return err
	}
	if sem == nil {
		return fault.New(fault.KindNotFound, "seminar not found")
	}
	if !s.now().Before(sem.ScheduledAt) {
		return fault.New(fault.KindSeminarClosed, "seminar has already been held")
	}

	deleted, err := s.store.Delete(ctx, userID, seminarID)
	if err != nil {
		return err
	}
	if !deleted {
		return fault.New(fault.KindNotRegistered, "not registered for this seminar")
	}

	s.refreshOccupancy(ctx, sem)
	return nil
}

// Status reports whether the user holds a registration. Side-effect-free.
func (s *Service) Status(ctx context.Context, userID, seminarID uuid.UUID) (*Status, error) {
	reg, err := s.store.Get(ctx, userID, seminarID)
	if err != nil {
		return nil, err
	}
	return &Status{Registered: reg != nil, Registration: reg}, nil
}

// afterAdmission refreshes the occupancy cache and, when the seminar crossed
// the near-capacity threshold, enqueues a monitoring alert. Best-effort: a
// broken cache or queue never fails a committed admission.
func (s *Service) afterAdmission(ctx context.Context, sem *models.Seminar) {
	ratio := s.refreshOccupancy(ctx, sem)
	if s.alerts == nil || sem.Location.Unlimited() || ratio < NearCapacityThreshold {
		return
	}
	count, err := s.store.CountBySeminar(ctx, sem.ID)
	if err != nil {
		s.logger.Warn("capacity alert count failed", zap.Error(err))
		return
	}
	payload := queue.CapacityAlertPayload{
		SeminarID:    sem.ID,
		Registered:   count,
		MaxVacancies: *sem.Location.MaxVacancies,
		Occupancy:    ratio,
	}
	if err := s.alerts.EnqueueCapacityAlert(ctx, payload); err != nil {
		s.logger.Warn("capacity alert enqueue failed",
			zap.String("seminar_id", sem.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) refreshOccupancy(ctx context.Context, sem *models.Seminar) float64 {
	ratio, err := s.guard.OccupancyRatio(ctx, sem)
	if err != nil {
		s.logger.Warn("occupancy ratio failed", zap.String("seminar_id", sem.ID.String()), zap.Error(err))
		return 0
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, sem.ID, ratio); err != nil {
			s.logger.Debug("occupancy cache set failed", zap.Error(err))
		}
	}
	return ratio
}

// isWriteConflict reports whether the error is a storage-level conflict worth
// a transparent retry (serialization failure or deadlock).
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
