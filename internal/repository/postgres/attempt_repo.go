package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewAttemptRepo создает новый репозиторий попыток.
// lockTimeout ограничивает ожидание блокировок строк внутри транзакций (0 - без ограничения).
func NewAttemptRepo(db *gorm.DB, lockTimeout time.Duration) *AttemptRepo {
	return &AttemptRepo{db: db, lockTimeout: lockTimeout}
}

// GetByID возвращает попытку по ID вместе с участником
func (r *AttemptRepo) GetByID(ctx context.Context, id uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	if err := r.db.WithContext(ctx).Preload("Participant").First(&attempt, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

// GetByQuizAndParticipant возвращает попытку участника в викторине
func (r *AttemptRepo) GetByQuizAndParticipant(ctx context.Context, quizID, participantID uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND participant_id = ?", quizID, participantID).
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

// CountByQuiz возвращает число созданных попыток викторины
func (r *AttemptRepo) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Attempt{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, translateError(err)
}

// CreateWithinCapacity вставляет попытку под блокировкой строки викторины.
// SELECT ... FOR UPDATE сериализует подключения к одной викторине, поэтому подсчет
// и вставка не могут чередоваться. Триггер trg_quiz_attempts_capacity - вторая линия защиты.
func (r *AttemptRepo) CreateWithinCapacity(ctx context.Context, attempt *entity.Attempt) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.setLockTimeout(tx); err != nil {
			return err
		}

		var quiz entity.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "is_active", "is_ended", "participant_limit").
			First(&quiz, attempt.QuizID).Error; err != nil {
			return err
		}
		if quiz.IsEnded {
			return repository.ErrQuizAlreadyEnded
		}
		if !quiz.IsActive {
			return repository.ErrQuizNotActive
		}

		var count int64
		if err := tx.Model(&entity.Attempt{}).Where("quiz_id = ?", attempt.QuizID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(quiz.Capacity()) {
			return repository.ErrCapacityReached
		}

		return tx.Omit("Participant").Create(attempt).Error
	})

	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: quiz #%d participant #%d", repository.ErrAttemptExists, attempt.QuizID, attempt.ParticipantID)
	case isCheckViolation(err):
		log.Printf("[AttemptRepo] Capacity trigger rejected attempt for quiz #%d", attempt.QuizID)
		return repository.ErrCapacityReached
	default:
		return translateError(err)
	}
}

// HasAnswer проверяет, есть ли ответ попытки на вопрос
func (r *AttemptRepo) HasAnswer(ctx context.Context, attemptID, questionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// ApplyAnswer сохраняет ответ и продвигает попытку в одной транзакции.
// Строка попытки блокируется, состояние викторины и номер вопроса проверяются повторно,
// а уникальный индекс (attempt_id, question_id) гарантирует не более одного ответа на вопрос.
func (r *AttemptRepo) ApplyAnswer(ctx context.Context, app entity.AnswerApplication) (*entity.Attempt, error) {
	var attempt entity.Attempt

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.setLockTimeout(tx); err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, app.AttemptID).Error; err != nil {
			return err
		}

		// FOR SHARE ждет завершения параллельного EndQuiz и не дает завершить викторину до коммита ответа
		var quiz entity.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "is_active", "is_ended").
			First(&quiz, attempt.QuizID).Error; err != nil {
			return err
		}
		if quiz.IsEnded {
			return repository.ErrQuizAlreadyEnded
		}
		if !quiz.IsActive {
			return repository.ErrQuizNotActive
		}

		if attempt.IsCompleted {
			return repository.ErrAttemptFinished
		}
		if attempt.CurrentQuestion != app.QuestionOrdinal {
			return fmt.Errorf("%w: attempt #%d is on question %d, got %d",
				repository.ErrOrdinalMismatch, attempt.ID, attempt.CurrentQuestion, app.QuestionOrdinal)
		}

		answer := entity.Answer{
			AttemptID:      app.AttemptID,
			QuestionID:     app.QuestionID,
			SelectedOption: app.SelectedOption,
			IsCorrect:      app.IsCorrect,
			TimeTakenMs:    app.TimeTakenMs,
			AnsweredAt:     app.AnsweredAt,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&answer)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrAnswerExists
		}

		points := 0
		if app.IsCorrect {
			points = app.Points
		}
		updates := map[string]interface{}{
			"score":            gorm.Expr("score + ?", points),
			"current_question": gorm.Expr("current_question + 1"),
			"total_time_ms":    gorm.Expr("total_time_ms + ?", app.TimeTakenMs),
		}
		if app.QuestionOrdinal >= app.TotalQuestions {
			updates["is_completed"] = true
			updates["completed_at"] = app.AnsweredAt
		}
		if err := tx.Model(&entity.Attempt{}).
			Where("id = ? AND current_question = ?", attempt.ID, app.QuestionOrdinal).
			Updates(updates).Error; err != nil {
			return err
		}

		attempt.Apply(app)
		return nil
	})

	switch {
	case err == nil:
		return &attempt, nil
	case isUniqueViolation(err):
		return nil, repository.ErrAnswerExists
	default:
		return nil, translateError(err)
	}
}

// ListStandings возвращает попытки в порядке рейтинга. ORDER BY совпадает с entity.SortStandings.
func (r *AttemptRepo) ListStandings(ctx context.Context, quizID uint, mode entity.LeaderboardMode, limit int) ([]entity.Attempt, error) {
	query := r.db.WithContext(ctx).Preload("Participant").Where("quiz_id = ?", quizID)

	switch mode {
	case entity.LeaderboardLive:
		query = query.Order("score DESC, current_question DESC, total_time_ms ASC, id ASC")
	default:
		query = query.Where("is_completed = ?", true).
			Order("score DESC, total_time_ms ASC, completed_at ASC, id ASC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var attempts []entity.Attempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, translateError(err)
	}
	return attempts, nil
}

// setLockTimeout ограничивает ожидание блокировок текущей транзакции.
// SET не принимает параметры, значение подставляется как целое число миллисекунд.
func (r *AttemptRepo) setLockTimeout(tx *gorm.DB) error {
	if r.lockTimeout <= 0 {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())).Error
}
