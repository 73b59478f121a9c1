// Package game holds what the game services share: the caller identity and
// the error kinds the HTTP layer turns into status codes.
package game

import "errors"

// Error kinds. Service errors wrap exactly one of these.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalid         = errors.New("invalid request")
	ErrPaymentRequired = errors.New("payment required")
	ErrUnavailable     = errors.New("unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func Forbidden(msg string) error       { return &kindError{kind: ErrForbidden, msg: msg} }
func Conflict(msg string) error        { return &kindError{kind: ErrConflict, msg: msg} }
func Invalid(msg string) error         { return &kindError{kind: ErrInvalid, msg: msg} }
func PaymentRequired(msg string) error { return &kindError{kind: ErrPaymentRequired, msg: msg} }
func Unavailable(msg string) error     { return &kindError{kind: ErrUnavailable, msg: msg} }

// ErrNotOwner is returned when the caller doesn't own the resource.
var ErrNotOwner = Forbidden("you do not own this resource")

// Caller identifies who is acting.
type Caller struct {
	UserID string
	Admin  bool
}

// CanRead reports whether the caller may view a resource owned by ownerID.
func (c Caller) CanRead(ownerID string) bool {
	return c.Admin || c.UserID == ownerID
}

// Owns reports whether the caller owns the resource. Admins get no bypass
// here: only the owner may play.
func (c Caller) Owns(ownerID string) bool {
	return c.UserID == ownerID
}
