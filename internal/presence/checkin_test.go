package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seminarly/backend/internal/fault"
	"github.com/seminarly/backend/internal/models"
)

// fakeRegWriter records presence upserts in memory, one row per pair.
type fakeRegWriter struct {
	rows map[[2]uuid.UUID]*models.Registration
}

func newFakeRegWriter() *fakeRegWriter {
	return &fakeRegWriter{rows: make(map[[2]uuid.UUID]*models.Registration)}
}

func (f *fakeRegWriter) UpsertPresent(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	key := [2]uuid.UUID{userID, seminarID}
	if reg, ok := f.rows[key]; ok {
		reg.Present = true
		out := *reg
		return &out, nil
	}
	reg := &models.Registration{
		ID:        uuid.New(),
		UserID:    userID,
		SeminarID: seminarID,
		Present:   true,
		CreatedAt: time.Now(),
	}
	f.rows[key] = reg
	out := *reg
	return &out, nil
}

type checkInFixture struct {
	protocol  *Protocol
	lifecycle *Lifecycle
	regs      *fakeRegWriter
	sem       *models.Seminar
	now       *time.Time
}

func newCheckInFixture(t *testing.T) *checkInFixture {
	t.Helper()
	lc, store, sem, now := newTestLifecycle(t)
	regs := newFakeRegWriter()
	p := NewProtocol(store, regs, &fakeSeminars{byID: map[uuid.UUID]*models.Seminar{sem.ID: sem}}, nil)
	p.now = func() time.Time { return *now }
	return &checkInFixture{protocol: p, lifecycle: lc, regs: regs, sem: sem, now: now}
}

func TestCheckInUnknownToken(t *testing.T) {
	fx := newCheckInFixture(t)
	_, err := fx.protocol.CheckIn(context.Background(), "no-such-token", nil)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCheckInFlow(t *testing.T) {
	ctx := context.Background()
	fx := newCheckInFixture(t)
	userID := uuid.New()

	link, err := fx.lifecycle.Create(ctx, fx.sem.ID)
	require.NoError(t, err)

	t.Run("inactive link rejects", func(t *testing.T) {
		_, err := fx.protocol.CheckIn(ctx, link.Token, &userID)
		require.True(t, fault.IsKind(err, fault.KindLinkInvalid))
		var fe *fault.Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, false, fe.Detail["is_active"])
		assert.Equal(t, false, fe.Detail["is_expired"])
	})

	_, err = fx.lifecycle.Toggle(ctx, fx.sem.ID)
	require.NoError(t, err)
	*fx.now = scheduledAt.Add(30 * time.Minute)

	t.Run("anonymous caller must authenticate", func(t *testing.T) {
		_, err := fx.protocol.CheckIn(ctx, link.Token, nil)
		assert.True(t, fault.IsKind(err, fault.KindAuthRequired))
	})

	t.Run("authenticated caller is marked present", func(t *testing.T) {
		result, err := fx.protocol.CheckIn(ctx, link.Token, &userID)
		require.NoError(t, err)
		assert.True(t, result.Present)
		assert.True(t, result.Registration.Present)
		require.NotNil(t, result.Seminar)
		assert.Equal(t, fx.sem.ID, result.Seminar.ID)
	})

	t.Run("repeat check-in is idempotent", func(t *testing.T) {
		result, err := fx.protocol.CheckIn(ctx, link.Token, &userID)
		require.NoError(t, err)
		assert.True(t, result.Present)
		assert.Len(t, fx.regs.rows, 1)
	})

	t.Run("expired link rejects with detail", func(t *testing.T) {
		*fx.now = scheduledAt.Add(5 * time.Hour)
		_, err := fx.protocol.CheckIn(ctx, link.Token, &userID)
		require.True(t, fault.IsKind(err, fault.KindLinkInvalid))
		var fe *fault.Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, true, fe.Detail["is_active"])
		assert.Equal(t, true, fe.Detail["is_expired"])
	})
}

// Check-in ignores capacity: a walk-in at a full seminar is still recorded.
func TestCheckInBypassesCapacity(t *testing.T) {
	ctx := context.Background()
	fx := newCheckInFixture(t)

	one := 1
	fx.sem.Location.MaxVacancies = &one

	link, err := fx.lifecycle.Create(ctx, fx.sem.ID)
	require.NoError(t, err)
	_, err = fx.lifecycle.Toggle(ctx, fx.sem.ID)
	require.NoError(t, err)
	*fx.now = scheduledAt.Add(10 * time.Minute)

	seated := uuid.New()
	walkIn := uuid.New()
	_, err = fx.regs.UpsertPresent(ctx, seated, fx.sem.ID)
	require.NoError(t, err)

	result, err := fx.protocol.CheckIn(ctx, link.Token, &walkIn)
	require.NoError(t, err)
	assert.True(t, result.Present)
	assert.Len(t, fx.regs.rows, 2)
}
