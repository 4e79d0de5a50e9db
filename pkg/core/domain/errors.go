package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidURL   = fmt.Errorf("%w: invalid url", ErrValidation)
	ErrInvalidAlias = fmt.Errorf("%w: invalid alias", ErrValidation)

	ErrConflict   = errors.New("code already exists")
	ErrAliasTaken = fmt.Errorf("%w: alias already taken", ErrConflict)

	// ErrNotFound covers both missing and inactive links.
	ErrNotFound = errors.New("link not found")
)

// CodeConflictError is returned by stores when a code is already claimed.
type CodeConflictError struct {
	Code string
}

func (e *CodeConflictError) Error() string {
	return fmt.Sprintf("code %q already exists", e.Code)
}

func (e *CodeConflictError) Is(target error) bool {
	return target == ErrConflict
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
