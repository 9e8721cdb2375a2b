package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrIntegrity  = errors.New("integrity violation")

	ErrUnknownKind      = fmt.Errorf("unknown product kind: %w", ErrNotFound)
	ErrUnmappedCategory = fmt.Errorf("category has no navigation kind: %w", ErrValidation)
	ErrStaleCart        = errors.New("cart was modified concurrently")
)

// Translate maps gorm errors onto the package taxonomy. The DB must be opened
// with TranslateError so duplicate keys arrive as gorm.ErrDuplicatedKey.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}
