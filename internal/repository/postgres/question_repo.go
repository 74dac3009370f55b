package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// AppendBatch добавляет вопросы в конец викторины.
// Строка викторины блокируется, чтобы порядковые номера и question_count не разошлись.
func (r *QuestionRepo) AppendBatch(ctx context.Context, quizID uint, questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Устанавливаем кодировку UTF-8 внутри транзакции
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}

		var quiz entity.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "is_started", "question_count").
			First(&quiz, quizID).Error; err != nil {
			return err
		}
		if quiz.IsStarted {
			return fmt.Errorf("%w: quiz #%d", repository.ErrQuizAlreadyStarted, quizID)
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].QuizID = quizID
			questions[i].Ordinal = quiz.QuestionCount + i + 1
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}

		return tx.Model(&entity.Quiz{}).
			Where("id = ?", quizID).
			Update("question_count", gorm.Expr("question_count + ?", len(questions))).
			Error
	})
	return translateError(err)
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(ctx context.Context, id uint) (*entity.Question, error) {
	var question entity.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &question, nil
}

// GetByOrdinal возвращает вопрос викторины по порядковому номеру
func (r *QuestionRepo) GetByOrdinal(ctx context.Context, quizID uint, ordinal int) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND ordinal = ?", quizID, ordinal).
		First(&question).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &question, nil
}

// ListByQuiz возвращает все вопросы викторины по порядку
func (r *QuestionRepo) ListByQuiz(ctx context.Context, quizID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.WithContext(ctx).Where("quiz_id = ?", quizID).Order("ordinal").Find(&questions).Error
	return questions, translateError(err)
}
