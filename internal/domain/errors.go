package domain

import (
	"github.com/cockroachdb/errors"
)

// Error categories. Concrete errors are marked with one of these so that
// errors.Is keeps working after wrapping.
var (
	ErrValidation      = errors.New("validation error")
	ErrCapacity        = errors.New("capacity error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidID       = errors.New("invalid id")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
	ErrPersistence     = errors.New("persistence error")
)

// Kind is the coarse category of an error as seen by callers.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindCapacity    Kind = "capacity"
	KindNotFound    Kind = "not_found"
	KindInvalidID   Kind = "invalid_id"
	KindConflict    Kind = "conflict"
	KindExternal    Kind = "external"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

func Validationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

func NotFoundf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

func InvalidIDf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidID)
}

func Conflictf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

// CapacityError reports how many seats remain for the requested slot.
func CapacityError(available int) error {
	return errors.Mark(errors.Newf("Only %d seats available", available), ErrCapacity)
}

// SlotCapacityError is the update-path variant of CapacityError.
func SlotCapacityError(available int) error {
	return errors.Mark(errors.Newf("Only %d seats available for this time slot", available), ErrCapacity)
}

// External marks a failure of a notification provider or other remote collaborator.
func External(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrExternalService)
}

// Persistence wraps a storage failure. Errors that already carry a category
// are returned untouched so their user-facing message survives.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	return errors.Mark(errors.Wrap(err, msg), ErrPersistence)
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrCapacity):
		return KindCapacity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidID):
		return KindInvalidID
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrExternalService):
		return KindExternal
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
