package persistence

import (
	"errors"
	"strings"

	"github.com/rentledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// isDuplicateKey reports a unique-constraint violation. TranslateError covers
// drivers that support it; the message check covers connections opened without it.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// translateWriteError maps a unique-constraint violation to a CONCURRENCY_CONFLICT
// so two writers racing on the same transaction ID or idempotency key see a retryable error.
func translateWriteError(err error, what string) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return shared.NewConflictError("%s already exists", what)
	}
	return err
}
