package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

func TestIsUniqueViolation_BothDrivers(t *testing.T) {
	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})

	assert.True(t, isUniqueViolation(pgxErr), "pgconn 23505 должен распознаваться")
	assert.True(t, isUniqueViolation(pqErr), "lib/pq 23505 должен распознаваться")
	assert.False(t, isUniqueViolation(errors.New("other")))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, isCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, isCheckViolation(&pgconn.PgError{Code: "23505"}))
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateError(context.DeadlineExceeded), apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, translateError(&pgconn.PgError{Code: "55P03"}), apperrors.ErrStoreUnavailable, "lock_timeout - временная ошибка")
	assert.ErrorIs(t, translateError(&pq.Error{Code: "08006"}), apperrors.ErrStoreUnavailable, "ошибка соединения - временная")

	other := errors.New("syntax error")
	assert.Equal(t, other, translateError(other))
}
