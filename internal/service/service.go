package service

import "errors"

// Domain errors shared across services. The dispatcher maps these onto
// machine-checkable ERR sub-codes.
var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller does not own the targeted entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a signup against an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPastStart indicates a booking whose start is not strictly in the future.
	ErrPastStart = errors.New("start is in the past")
	// ErrOutOfSchedule indicates a booking outside every schedule window.
	ErrOutOfSchedule = errors.New("start outside the weekly schedule")
	// ErrSlotTaken indicates the slot already has a confirmed appointment.
	ErrSlotTaken = errors.New("slot already booked")
)

// Pusher delivers asynchronous push lines to subscribed connections.
// *relay.Relay satisfies it; tests use in-memory stubs.
type Pusher interface {
	BroadcastChat(convID uint, line string)
	BroadcastComments(postID uint, line string)
	SendToUser(userID uint, line string)
}
