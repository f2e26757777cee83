package presence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/fault"
	"github.com/seminarly/backend/internal/models"
)

// DefaultWindow is how long a presence link stays valid past the seminar's
// scheduled time once activated, independent of how long the event runs.
const DefaultWindow = 4 * time.Hour

// Store is the presence link store.
type Store interface {
	Create(ctx context.Context, link *models.PresenceLink) error
	GetBySeminar(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error)
	GetByToken(ctx context.Context, token string) (*models.PresenceLink, error)
	Update(ctx context.Context, link *models.PresenceLink) error
}

// SeminarReader resolves seminars for link creation and toggling.
type SeminarReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Lifecycle owns the single presence link per seminar: creation, activation
// toggling and expiry derivation. Validity is always computed from stored
// fields plus the clock, never cached.
type Lifecycle struct {
	store    Store
	seminars SeminarReader
	window   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewLifecycle creates a presence link lifecycle. window <= 0 falls back to
// DefaultWindow.
func NewLifecycle(store Store, seminars SeminarReader, window time.Duration, logger *zap.Logger) *Lifecycle {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		store:    store,
		seminars: seminars,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

// Create generates the seminar's presence link. New links start inactive with
// no expiry. Fails when the seminar already owns one.
func (l *Lifecycle) Create(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error) {
	sem, err := l.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, fault.New(fault.KindNotFound, "seminar not found")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	link := &models.PresenceLink{
		SeminarID: seminarID,
		Token:     token,
		Active:    false,
	}
	if err := l.store.Create(ctx, link); err != nil {
		if errors.Is(err, ErrLinkExists) {
			return nil, fault.New(fault.KindAlreadyExists, "seminar already has a presence link")
		}
		return nil, err
	}
	l.logger.Info("presence link created", zap.String("seminar_id", seminarID.String()))
	return link, nil
}

// Toggle flips the link's active flag. Activation sets the expiry to the
// seminar's scheduled time plus the window; deactivation clears it.
func (l *Lifecycle) Toggle(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error) {
	link, err := l.store.GetBySeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fault.New(fault.KindNotFound, "seminar has no presence link")
	}

	if link.Active {
		link.Active = false
		link.ExpiresAt = nil
	} else {
		sem, err := l.seminars.GetByID(ctx, seminarID)
		if err != nil {
			return nil, err
		}
		if sem == nil {
			return nil, fault.New(fault.KindNotFound, "seminar not found")
		}
		expires := sem.ScheduledAt.Add(l.window)
		link.Active = true
		link.ExpiresAt = &expires
	}

	if err := l.store.Update(ctx, link); err != nil {
		return nil, err
	}
	l.logger.Info("presence link toggled",
		zap.String("seminar_id", seminarID.String()),
		zap.Bool("active", link.Active),
	)
	return link, nil
}

// Describe returns the link's state with derived validity, or nil when the
// seminar has no link. Never mutates state.
func (l *Lifecycle) Describe(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLinkView, error) {
	link, err := l.store.GetBySeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}
	view := l.view(link)
	return &view, nil
}

func (l *Lifecycle) view(link *models.PresenceLink) models.PresenceLinkView {
	now := l.now()
	return models.PresenceLinkView{
		PresenceLink: *link,
		IsExpired:    link.Expired(now),
		IsValid:      link.Valid(now),
	}
}
