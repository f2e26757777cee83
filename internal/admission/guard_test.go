package admission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminarly/backend/internal/models"
)

type stubCounter struct {
	count int
	err   error
}

func (s *stubCounter) CountBySeminar(ctx context.Context, seminarID uuid.UUID) (int, error) {
	return s.count, s.err
}

func boundedSeminar(max int) *models.Seminar {
	return &models.Seminar{
		ID:          uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Active:      true,
		Location:    models.Location{ID: uuid.New(), Name: "Room A", MaxVacancies: &max},
	}
}

func unboundedSeminar() *models.Seminar {
	return &models.Seminar{
		ID:          uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Active:      true,
		Location:    models.Location{ID: uuid.New(), Name: "Auditorium"},
	}
}

func TestGuardAdmissible(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited location always admits", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 100000})
		ok, err := guard.Admissible(ctx, unboundedSeminar())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("admits below capacity", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 9})
		ok, err := guard.Admissible(ctx, boundedSeminar(10))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects at capacity", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 10})
		ok, err := guard.Admissible(ctx, boundedSeminar(10))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGuardOccupancyRatio(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited location reports zero", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 500})
		ratio, err := guard.OccupancyRatio(ctx, unboundedSeminar())
		require.NoError(t, err)
		assert.Equal(t, 0.0, ratio)
	})

	t.Run("eight of ten is near capacity", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 8})
		sem := boundedSeminar(10)

		ratio, err := guard.OccupancyRatio(ctx, sem)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ratio, NearCapacityThreshold)

		near, err := guard.NearCapacity(ctx, sem)
		require.NoError(t, err)
		assert.True(t, near)
	})

	t.Run("seven of ten is not near capacity", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 7})
		sem := boundedSeminar(10)

		ratio, err := guard.OccupancyRatio(ctx, sem)
		require.NoError(t, err)
		assert.Less(t, ratio, NearCapacityThreshold)

		near, err := guard.NearCapacity(ctx, sem)
		require.NoError(t, err)
		assert.False(t, near)
	})

	t.Run("unlimited location is never near capacity", func(t *testing.T) {
		guard := NewGuard(&stubCounter{count: 500})
		near, err := guard.NearCapacity(ctx, unboundedSeminar())
		require.NoError(t, err)
		assert.False(t, near)
	})
}
