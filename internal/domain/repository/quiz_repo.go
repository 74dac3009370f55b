package repository

import (
	"context"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuizSettings - изменяемые администратором параметры викторины. nil - не менять.
type QuizSettings struct {
	Title              *string
	ParticipantLimit   *int
	TimePerQuestionSec *int
	TotalTimeLimitSec  *int
}

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(ctx context.Context, quiz *entity.Quiz) error
	GetByID(ctx context.Context, id uint) (*entity.Quiz, error)
	GetByEventID(ctx context.Context, eventID uint) (*entity.Quiz, error)
	List(ctx context.Context, limit, offset int) ([]entity.Quiz, error)
	// UpdateSettings точечно обновляет настройки без полного Save
	UpdateSettings(ctx context.Context, quizID uint, settings QuizSettings) error
	// Start атомарно переводит викторину в активное состояние.
	// Возвращает ErrQuizAlreadyEnded, если викторина уже завершена.
	Start(ctx context.Context, quizID uint, at time.Time) error
	// End завершает викторину. Повторный вызов не является ошибкой.
	End(ctx context.Context, quizID uint, at time.Time) error
}
