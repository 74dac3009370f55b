package quizengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Причины отказов для показа участнику
const (
	ReasonRateLimited      = "Too many quiz join attempts. Please wait a moment."
	ReasonQuizInactive     = "Quiz is not active yet."
	ReasonQuizEnded        = "Quiz has ended."
	ReasonAlreadyCompleted = "You have already completed this quiz."
	ReasonDuplicateAnswer  = "This question has already been answered."
	ReasonStaleQuestion    = "This is not your current question. Please reload it."
	ReasonSubmissionBusy   = "Answer submission in progress, please wait"
)

// ReasonQuizFull формирует причину отказа при переполнении
func ReasonQuizFull(limit int) string {
	return fmt.Sprintf("Quiz is full! Maximum %d participants allowed.", limit)
}

// withStoreTimeout ограничивает атомарный шаг хранилища
func (c *Config) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.StoreTimeout)
}

// storeFailure превращает ошибку хранилища в ошибку приложения.
// Недоступность хранилища и истекшие таймауты становятся отказом StoreUnavailable.
func storeFailure(op string, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return err
	case errors.Is(err, apperrors.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.Unavailable(fmt.Errorf("%s: %w", op, err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// closedQuizRejection возвращает отказ для закрытой викторины или nil
func closedQuizRejection(isActive, isEnded bool) error {
	if isEnded {
		return apperrors.Reject(apperrors.ErrQuizEnded, ReasonQuizEnded)
	}
	if !isActive {
		return apperrors.Reject(apperrors.ErrQuizInactive, ReasonQuizInactive)
	}
	return nil
}

// quizStateRejection переводит ошибки состояния викторины из хранилища в отказы.
// Для прочих ошибок возвращает nil.
func quizStateRejection(err error) error {
	switch {
	case errors.Is(err, repository.ErrQuizAlreadyEnded):
		return apperrors.Reject(apperrors.ErrQuizEnded, ReasonQuizEnded)
	case errors.Is(err, repository.ErrQuizNotActive):
		return apperrors.Reject(apperrors.ErrQuizInactive, ReasonQuizInactive)
	}
	return nil
}

// ClosedQuizError возвращает отказ, если по снимку викторина не принимает участников
func ClosedQuizError(snapshot *entity.QuizSnapshot) error {
	return closedQuizRejection(snapshot.IsActive, snapshot.IsEnded)
}
