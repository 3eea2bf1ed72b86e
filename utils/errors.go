package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError is returned when a session, avatar, MMU or scene record is absent.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("can not find %s with ID %q", e.Kind, e.ID)
}

// NewNotFoundError is used when a record of the given kind is not found.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFoundError returns whether the error is or wraps a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// AlreadyExistsError is returned when an insert loses against an existing record.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// NewAlreadyExistsError is used when a record of the given kind already exists.
func NewAlreadyExistsError(kind, id string) error {
	return &AlreadyExistsError{Kind: kind, ID: id}
}

// IsAlreadyExistsError returns whether the error is or wraps an AlreadyExistsError.
func IsAlreadyExistsError(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}
