package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// AttemptRepository - авторитетное хранилище попыток и ответов.
// Все решения о вместимости и начислении очков принимаются здесь атомарно.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.Attempt, error)
	GetByQuizAndParticipant(ctx context.Context, quizID, participantID uint) (*entity.Attempt, error)
	CountByQuiz(ctx context.Context, quizID uint) (int64, error)

	// CreateWithinCapacity вставляет попытку, только если викторина открыта и
	// число попыток меньше лимита. Проверка и вставка выполняются атомарно.
	// Ошибки: ErrCapacityReached, ErrAttemptExists, ErrQuizNotActive, ErrQuizAlreadyEnded.
	CreateWithinCapacity(ctx context.Context, attempt *entity.Attempt) error

	HasAnswer(ctx context.Context, attemptID, questionID uint) (bool, error)

	// ApplyAnswer сохраняет ответ и обновляет попытку одним атомарным шагом.
	// Ошибки: ErrAnswerExists, ErrOrdinalMismatch, ErrAttemptFinished.
	ApplyAnswer(ctx context.Context, app entity.AnswerApplication) (*entity.Attempt, error)

	// ListStandings возвращает попытки викторины в порядке рейтинга режима, не больше limit.
	ListStandings(ctx context.Context, quizID uint, mode entity.LeaderboardMode, limit int) ([]entity.Attempt, error)
}
