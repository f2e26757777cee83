package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seminarly/backend/internal/models"
)

// ErrLinkExists: the seminar already owns a presence link.
var ErrLinkExists = errors.New("presence link already exists")

const linkColumns = `id, seminar_id, token, active, expires_at, created_at, updated_at`

// Repository handles presence link persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presence link repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the seminar's presence link. The unique constraint on
// seminar_id makes duplicate creation race-safe.
func (r *Repository) Create(ctx context.Context, link *models.PresenceLink) error {
	const q = `INSERT INTO presence_links (seminar_id, token, active, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, link.SeminarID, link.Token, link.Active, link.ExpiresAt).
		Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrLinkExists
	}
	if err != nil {
		return fmt.Errorf("insert presence link: %w", err)
	}
	return nil
}

// GetBySeminar returns the seminar's presence link, or nil when none exists.
func (r *Repository) GetBySeminar(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM presence_links WHERE seminar_id = $1`
	return r.get(ctx, q, seminarID)
}

// GetByToken returns the presence link for a token, or nil when unknown.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.PresenceLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM presence_links WHERE token = $1`
	return r.get(ctx, q, token)
}

// Update persists the link's active flag and expiry.
func (r *Repository) Update(ctx context.Context, link *models.PresenceLink) error {
	const q = `UPDATE presence_links SET active = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, link.ID, link.Active, link.ExpiresAt).Scan(&link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update presence link: %w", err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, q string, arg interface{}) (*models.PresenceLink, error) {
	var link models.PresenceLink
	err := r.pool.QueryRow(ctx, q, arg).
		Scan(&link.ID, &link.SeminarID, &link.Token, &link.Active, &link.ExpiresAt, &link.CreatedAt, &link.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
