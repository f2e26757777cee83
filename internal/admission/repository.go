package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seminarly/backend/internal/models"
)

var (
	// ErrCapacityExhausted: the admit transaction found no free seat.
	ErrCapacityExhausted = errors.New("seminar capacity exhausted")
	// ErrDuplicateRegistration: the (user, seminar) pair already has a row.
	ErrDuplicateRegistration = errors.New("registration already exists")
)

const registrationColumns = `id, user_id, seminar_id, present, created_at`

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert admits a user atomically: the seminar row is locked so concurrent
// admissions serialize on the capacity count, and the unique constraint on
// (user_id, seminar_id) arbitrates duplicate attempts. Capacity check and
// insert commit or fail as one unit.
func (r *Repository) Insert(ctx context.Context, userID, seminarID uuid.UUID, maxVacancies *int) (*models.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin admit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM seminars WHERE id = $1 FOR UPDATE`, seminarID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("seminar %s vanished during admit", seminarID)
		}
		return nil, fmt.Errorf("lock seminar: %w", err)
	}

	if maxVacancies != nil && *maxVacancies > 0 {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE seminar_id = $1`, seminarID).Scan(&count); err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if count >= *maxVacancies {
			return nil, ErrCapacityExhausted
		}
	}

	var reg models.Registration
	err = tx.QueryRow(ctx, `INSERT INTO registrations (user_id, seminar_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, seminar_id) DO NOTHING
		RETURNING `+registrationColumns,
		userID, seminarID).
		Scan(&reg.ID, &reg.UserID, &reg.SeminarID, &reg.Present, &reg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicateRegistration
	}
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit admit tx: %w", err)
	}
	return &reg, nil
}

// UpsertPresent marks a user present, creating the registration if none
// exists. One conditional statement, so check-in races never produce
// duplicates and repeat calls are no-ops.
func (r *Repository) UpsertPresent(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	const q = `INSERT INTO registrations (user_id, seminar_id, present)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id, seminar_id) DO UPDATE SET present = TRUE
		RETURNING ` + registrationColumns
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, userID, seminarID).
		Scan(&reg.ID, &reg.UserID, &reg.SeminarID, &reg.Present, &reg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert present: %w", err)
	}
	return &reg, nil
}

// Get returns the registration for (user, seminar), or nil when absent.
func (r *Repository) Get(ctx context.Context, userID, seminarID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 AND seminar_id = $2`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, userID, seminarID).
		Scan(&reg.ID, &reg.UserID, &reg.SeminarID, &reg.Present, &reg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Delete removes the registration for (user, seminar). Returns false when no
// row existed.
func (r *Repository) Delete(ctx context.Context, userID, seminarID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE user_id = $1 AND seminar_id = $2`, userID, seminarID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountBySeminar returns the confirmed registration count for a seminar.
func (r *Repository) CountBySeminar(ctx context.Context, seminarID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE seminar_id = $1`, seminarID).Scan(&count)
	return count, err
}

// ListAttendees returns registrations joined with user info for a seminar.
func (r *Repository) ListAttendees(ctx context.Context, seminarID uuid.UUID) ([]models.Attendee, error) {
	const q = `SELECT r.id, u.id, u.email, u.full_name, r.present, r.created_at
		FROM registrations r JOIN users u ON u.id = r.user_id
		WHERE r.seminar_id = $1
		ORDER BY r.created_at`
	rows, err := r.pool.Query(ctx, q, seminarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.RegistrationID, &a.UserID, &a.Email, &a.FullName, &a.Present, &a.RegisteredAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
