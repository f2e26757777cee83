package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/fault"
	"github.com/seminarly/backend/internal/models"
)

// RegistrationWriter marks a user present, creating the registration when
// none exists. Must be a single conditional upsert at the store.
type RegistrationWriter interface {
	UpsertPresent(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error)
}

// CheckInResult is a successful check-in outcome.
type CheckInResult struct {
	Seminar      *models.Seminar      `json:"seminar"`
	Registration *models.Registration `json:"registration"`
	Present      bool                 `json:"present"`
}

// Protocol performs check-in against a scanned presence token:
// token lookup, validity gate, auth gate, then an idempotent presence upsert.
// Check-in never consults capacity: presence at the physical event is ground
// truth and is not rejected for a seat-counting reason.
type Protocol struct {
	links    Store
	regs     RegistrationWriter
	seminars SeminarReader
	logger   *zap.Logger
	now      func() time.Time
}

// NewProtocol creates a check-in protocol.
func NewProtocol(links Store, regs RegistrationWriter, seminars SeminarReader, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		links:    links,
		regs:     regs,
		seminars: seminars,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckIn resolves the token and marks the user present. userID nil means an
// anonymous caller: the request fails with auth_required but the token stays
// valid, so the caller can retry right after authenticating. Repeat calls
// with the same token and user succeed with no duplicate effects.
func (p *Protocol) CheckIn(ctx context.Context, token string, userID *uuid.UUID) (*CheckInResult, error) {
	link, err := p.links.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fault.New(fault.KindNotFound, "unknown check-in token")
	}

	now := p.now()
	if !link.Valid(now) {
		return nil, fault.New(fault.KindLinkInvalid, "check-in link is not currently valid").
			WithDetail("is_active", link.Active).
			WithDetail("is_expired", link.Expired(now))
	}

	if userID == nil {
		return nil, fault.New(fault.KindAuthRequired, "sign in to check in")
	}

	reg, err := p.regs.UpsertPresent(ctx, *userID, link.SeminarID)
	if err != nil {
		return nil, err
	}

	sem, err := p.seminars.GetByID(ctx, link.SeminarID)
	if err != nil {
		return nil, err
	}

	p.logger.Info("check-in recorded",
		zap.String("seminar_id", link.SeminarID.String()),
		zap.String("user_id", userID.String()),
	)
	return &CheckInResult{Seminar: sem, Registration: reg, Present: true}, nil
}
