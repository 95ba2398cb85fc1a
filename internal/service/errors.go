package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/repo"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
)

var (
	ErrCartNotFound      = fmt.Errorf("cart %w", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotInCart  = fmt.Errorf("product not in cart: %w", ErrNotFound)
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrMissingDocuments  = fmt.Errorf("%w: required documents missing", ErrValidation)
	ErrCartVersion       = fmt.Errorf("%w: cart was modified concurrently", ErrConflict)
	ErrInvalidCredential = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
)

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func invalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// storeErr maps store level failures onto the service taxonomy. notFound is
// returned for missing rows.
func storeErr(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repo.ErrStaleVersion):
		return ErrCartVersion
	default:
		return err
	}
}
