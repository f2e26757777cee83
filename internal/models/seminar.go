package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a physical room seminars are held in. MaxVacancies nil means
// the room has no seat limit.
type Location struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MaxVacancies *int      `json:"max_vacancies,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Unlimited reports whether the location has no capacity bound.
func (l *Location) Unlimited() bool {
	return l.MaxVacancies == nil || *l.MaxVacancies <= 0
}

// Seminar represents a scheduled seminar session at a location.
type Seminar struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Active      bool      `json:"active"`
	LocationID  uuid.UUID `json:"location_id"`
	Location    Location  `json:"location"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Admissible reports whether the seminar still accepts admissions: it must be
// active and its scheduled time must not have passed.
func (s *Seminar) Admissible(now time.Time) bool {
	return s.Active && now.Before(s.ScheduledAt)
}
