package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a user's seat in a seminar. At most one row exists per
// (user, seminar) pair; the database unique constraint is the arbiter under
// concurrent writes.
type Registration struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	SeminarID uuid.UUID `json:"seminar_id"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
}

// Attendee is a registration joined with its user, for organizer listings.
type Attendee struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Present        bool      `json:"present"`
	RegisteredAt   time.Time `json:"registered_at"`
}
