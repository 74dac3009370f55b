package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

// pgErrorCode извлекает SQLSTATE для pgconn и lib/pq драйверов
func pgErrorCode(err error) string {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isUniqueViolation проверяет Postgres unique violation (23505)
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// isCheckViolation проверяет check_violation (23514), который поднимает триггер вместимости
func isCheckViolation(err error) bool {
	return pgErrorCode(err) == codeCheckViolation
}

// isUnavailable определяет ошибки, после которых имеет смысл повторить запрос:
// истекший контекст, lock_timeout, отмена запроса и ошибки соединения (класс 08)
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	code := pgErrorCode(err)
	if code == codeLockNotAvailable || code == codeQueryCanceled || strings.HasPrefix(code, "08") {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// translateError приводит ошибки gorm/драйвера к ошибкам приложения
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}
