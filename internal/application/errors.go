package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting user lacks the role an operation needs.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidCredentials is returned when a username and password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrConflict is returned when an event must not overlap existing events and does.
	ErrConflict = errors.New("application: time slot is taken")
)
