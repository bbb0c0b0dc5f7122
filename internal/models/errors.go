package models

import (
	"errors"
	"fmt"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
	ErrValidation       = errors.New("the request is invalid")
)

// ValidationError is returned for input that is rejected before anything
// is written. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrUserEmailNotUnique     = fmt.Errorf("%w: a user with this email address already exists", ErrValidation)
	ErrCategoryNameNotUnique  = fmt.Errorf("%w: the category name must be unique for the user", ErrValidation)
	ErrAllocationKeyNotUnique = fmt.Errorf("%w: the allocation key must be unique for the budget", ErrValidation)
)
