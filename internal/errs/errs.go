// Package errs contains sentinel errors shared across layers so HTTP status
// mapping happens in exactly one place.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotPending indicates a moderation action on an artefato that is no
	// longer PENDENTE.
	ErrNotPending = errors.New("artefato not pending")

	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates a bearer token that failed validation for any
	// reason (malformed, bad signature, expired). Callers must not be able to
	// tell which.
	ErrInvalidToken = errors.New("invalid token")
)
