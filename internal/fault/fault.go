// Package fault defines the typed error taxonomy shared by the admission and
// check-in paths. Handlers map each Kind to an HTTP status; services return
// these errors verbatim instead of logging and swallowing them.
package fault

import "errors"

// Kind identifies an expected, caller-visible failure.
type Kind string

const (
	// KindSeminarClosed: the seminar is inactive or its scheduled time has passed.
	KindSeminarClosed Kind = "seminar_closed"
	// KindAlreadyRegistered: the (user, seminar) pair already has a registration.
	KindAlreadyRegistered Kind = "already_registered"
	// KindSeminarFull: the location's capacity is exhausted.
	KindSeminarFull Kind = "seminar_full"
	// KindNotRegistered: cancellation for a pair with no registration.
	KindNotRegistered Kind = "not_registered"
	// KindNotFound: unknown seminar or check-in token.
	KindNotFound Kind = "not_found"
	// KindAlreadyExists: the seminar already owns a presence link.
	KindAlreadyExists Kind = "already_exists"
	// KindLinkInvalid: the presence link is inactive or expired.
	KindLinkInvalid Kind = "link_invalid"
	// KindAuthRequired: a valid token was presented without an identity.
	KindAuthRequired Kind = "auth_required"
)

// Error is a typed outcome carrying a Kind plus optional structured detail
// (e.g. is_active / is_expired for invalid links).
type Error struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// New creates a typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetail attaches a detail field and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]interface{})
	}
	e.Detail[key] = value
	return e
}

// KindOf extracts the Kind from an error chain. ok is false for untyped errors.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
