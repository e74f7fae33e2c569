package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose id is taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrQuizSetNotFound indicates the referenced quiz set could not be loaded.
	ErrQuizSetNotFound = errors.New("quiz set not found")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrForbidden is returned when the caller lacks the role for an action.
	ErrForbidden = errors.New("caller not allowed to perform this action")
	// ErrInvalidState is returned when an action is not legal in the
	// session's current status.
	ErrInvalidState = errors.New("action not allowed in current session state")
	// ErrValidation wraps payload shape problems (answer count, index range).
	ErrValidation = errors.New("invalid payload")
	// ErrConflict signals a concurrent write detected by the repository.
	// It is retried internally and only surfaces when retries are exhausted.
	ErrConflict = errors.New("concurrent session update detected")
)
