package model

import "errors"

var (
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when an operation targets a session
	// that has already terminated.
	ErrSessionClosed = errors.New("session closed")

	// ErrPollPending is returned when a long-poll request arrives while
	// another one is still being held open. A correct client never does
	// this; the new request is rejected and the held poll is untouched.
	ErrPollPending = errors.New("another poll request is already pending")

	// ErrNoData is returned when a data POST carries no data field.
	ErrNoData = errors.New("post body carries no data")

	// ErrUnknownTransport is returned for an unrecognized transport kind.
	ErrUnknownTransport = errors.New("unknown transport kind")
)
