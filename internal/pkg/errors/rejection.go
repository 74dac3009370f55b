package errors

import (
	"errors"
	"fmt"
	"time"
)

// RejectionError - отказ в действии участника с причиной, пригодной для показа.
// Kind всегда один из sentinel-ошибок пакета, поэтому errors.Is(err, ErrQuizFull) работает.
type RejectionError struct {
	Kind       error
	Reason     string
	RetryAfter time.Duration
	cause      error
}

// Reject создает отказ указанного вида
func Reject(kind error, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason}
}

// RejectRetryAfter создает отказ с подсказкой, через сколько повторить
func RejectRetryAfter(kind error, reason string, retryAfter time.Duration) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason, RetryAfter: retryAfter}
}

// Unavailable оборачивает ошибку хранилища в отказ ErrStoreUnavailable
func Unavailable(cause error) *RejectionError {
	return &RejectionError{
		Kind:   ErrStoreUnavailable,
		Reason: "Service is temporarily unavailable, please retry",
		cause:  cause,
	}
}

func (e *RejectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap позволяет errors.Is находить как вид отказа, так и исходную причину
func (e *RejectionError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// Retryable сообщает, имеет ли смысл повторить то же действие позже
func (e *RejectionError) Retryable() bool {
	return IsRetryable(e.Kind)
}

// Type возвращает машинно-читаемый вид отказа
func (e *RejectionError) Type() string {
	return e.Kind.Error()
}

// IsRetryable проверяет, относится ли ошибка к временным отказам
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSubmissionBusy) ||
		errors.Is(err, ErrStoreUnavailable)
}

// AsRejection извлекает RejectionError из цепочки ошибок
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
