package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrUserNotRegistered - the channel account has no directory entry (abort turn, fixed apology, no session side effects)
	ErrUserNotRegistered = errors.New("user not registered")

	// ErrOrganizationNotConfigured - the user's organization is missing or disabled (abort turn, fixed apology)
	ErrOrganizationNotConfigured = errors.New("organization not configured")

	// ErrExtractionUnavailable - the text-completion service failed or returned garbage (silent fallback to heuristics)
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrPersistence - session read/write failed (best-effort continuation, never crashes the turn)
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput - invalid input
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict - conflict
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error, safe to retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
