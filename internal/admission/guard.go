package admission

import (
	"context"

	"github.com/google/uuid"

	"github.com/seminarly/backend/internal/models"
)

// NearCapacityThreshold is the occupancy ratio at which a seminar is flagged
// as near capacity.
const NearCapacityThreshold = 0.8

// Counter reports the confirmed registration count for a seminar.
type Counter interface {
	CountBySeminar(ctx context.Context, seminarID uuid.UUID) (int, error)
}

// Guard decides admissibility against a location's capacity. It is a pure
// read over current state; the authoritative capacity check happens again
// inside the admit transaction.
type Guard struct {
	regs Counter
}

// NewGuard creates a capacity guard.
func NewGuard(regs Counter) *Guard {
	return &Guard{regs: regs}
}

// Admissible reports whether the seminar has a free seat. Locations without a
// capacity bound always admit.
func (g *Guard) Admissible(ctx context.Context, sem *models.Seminar) (bool, error) {
	if sem.Location.Unlimited() {
		return true, nil
	}
	count, err := g.regs.CountBySeminar(ctx, sem.ID)
	if err != nil {
		return false, err
	}
	return count < *sem.Location.MaxVacancies, nil
}

// OccupancyRatio returns registrations / max vacancies. Unbounded locations
// report 0: they can never be near capacity.
func (g *Guard) OccupancyRatio(ctx context.Context, sem *models.Seminar) (float64, error) {
	if sem.Location.Unlimited() {
		return 0, nil
	}
	count, err := g.regs.CountBySeminar(ctx, sem.ID)
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(*sem.Location.MaxVacancies), nil
}

// NearCapacity reports whether the seminar is at or past the threshold.
func (g *Guard) NearCapacity(ctx context.Context, sem *models.Seminar) (bool, error) {
	ratio, err := g.OccupancyRatio(ctx, sem)
	if err != nil {
		return false, err
	}
	return ratio >= NearCapacityThreshold, nil
}
