package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	// AppendBatch добавляет вопросы в конец викторины, назначая порядковые номера
	// и обновляя question_count в одной транзакции. Запущенная викторина → ErrQuizAlreadyStarted.
	AppendBatch(ctx context.Context, quizID uint, questions []entity.Question) error
	GetByID(ctx context.Context, id uint) (*entity.Question, error)
	GetByOrdinal(ctx context.Context, quizID uint, ordinal int) (*entity.Question, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]entity.Question, error)
}

// ParticipantRepository определяет методы для работы с участниками
type ParticipantRepository interface {
	// GetOrCreate находит участника события по email (без учета регистра) или создает нового
	GetOrCreate(ctx context.Context, eventID uint, name, email string) (*entity.Participant, error)
	GetByID(ctx context.Context, id uint) (*entity.Participant, error)
}
