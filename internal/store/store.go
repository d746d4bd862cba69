// Package store wraps gorm access to posts, comments and the vote ledger.
// All gorm errors are translated to the apperr taxonomy at this boundary so
// nothing above it imports gorm error values.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sujalbistaa/confesso/internal/apperr"
)

// translate maps a gorm error onto the shared taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", apperr.ErrConflictIgnored, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
}
