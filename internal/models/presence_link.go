package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceLink is the single check-in token for a seminar. ExpiresAt is set
// while the link is active and cleared when it is deactivated; validity is
// always derived from these fields plus the clock, never stored.
type PresenceLink struct {
	ID        uuid.UUID  `json:"id"`
	SeminarID uuid.UUID  `json:"seminar_id"`
	Token     string     `json:"token"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Expired reports whether the link's window has closed. A link without an
// expiry never counts as expired.
func (p *PresenceLink) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Valid reports whether the link currently accepts check-ins.
func (p *PresenceLink) Valid(now time.Time) bool {
	return p.Active && p.ExpiresAt != nil && now.Before(*p.ExpiresAt)
}

// PresenceLinkView is a PresenceLink plus its derived validity, for API responses.
type PresenceLinkView struct {
	PresenceLink
	IsExpired bool `json:"is_expired"`
	IsValid   bool `json:"is_valid"`
}
