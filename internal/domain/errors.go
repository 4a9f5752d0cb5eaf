package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned (wrapped) when a referenced user, POS or review does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks business-rule violations.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned by stores when a write violates a unique key.
	ErrConflict = errors.New("conflict")

	ErrDuplicateReview = fmt.Errorf("%w: users can only review a POS once", ErrValidation)
	ErrSelfApproval    = fmt.Errorf("%w: users cannot approve their own review", ErrValidation)
)

// Entity kinds used in error messages and cache keys.
const (
	KindUser   = "user"
	KindPos    = "pos"
	KindReview = "review"
)

func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
