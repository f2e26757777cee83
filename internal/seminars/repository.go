package seminars

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seminarly/backend/internal/models"
)

// Repository handles seminar and location persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a seminars repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const seminarColumns = `s.id, s.title, s.description, s.scheduled_at, s.active, s.location_id, s.created_by, s.created_at, s.updated_at,
	l.id, l.name, l.max_vacancies, l.created_at, l.updated_at`

func scanSeminar(row pgx.Row) (*models.Seminar, error) {
	var s models.Seminar
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.ScheduledAt, &s.Active, &s.LocationID, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
		&s.Location.ID, &s.Location.Name, &s.Location.MaxVacancies, &s.Location.CreatedAt, &s.Location.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a seminar with its location resolved, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error) {
	const q = `SELECT ` + seminarColumns + `
		FROM seminars s JOIN locations l ON l.id = s.location_id
		WHERE s.id = $1`
	s, err := scanSeminar(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns seminars ordered by schedule, upcoming first.
func (r *Repository) List(ctx context.Context) ([]models.Seminar, error) {
	const q = `SELECT ` + seminarColumns + `
		FROM seminars s JOIN locations l ON l.id = s.location_id
		ORDER BY s.scheduled_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Seminar
	for rows.Next() {
		s, err := scanSeminar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Create inserts a new seminar.
func (r *Repository) Create(ctx context.Context, s *models.Seminar) error {
	const q = `INSERT INTO seminars (title, description, scheduled_at, active, location_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.Title, s.Description, s.ScheduledAt, s.Active, s.LocationID, s.CreatedBy).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update applies administrative edits to title, description, schedule and
// active flag. Returns false when the seminar does not exist.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description *string, scheduledAt *time.Time, active *bool) (bool, error) {
	const q = `UPDATE seminars SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			scheduled_at = COALESCE($4, scheduled_at),
			active = COALESCE($5, active),
			updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, title, description, scheduledAt, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreateLocation inserts a new location. maxVacancies nil means unlimited.
func (r *Repository) CreateLocation(ctx context.Context, loc *models.Location) error {
	const q = `INSERT INTO locations (name, max_vacancies)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, loc.Name, loc.MaxVacancies).
		Scan(&loc.ID, &loc.CreatedAt, &loc.UpdatedAt)
}

// ListLocations returns all locations.
func (r *Repository) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, max_vacancies, created_at, updated_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.MaxVacancies, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
