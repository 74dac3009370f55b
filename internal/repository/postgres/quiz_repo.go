package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину. Вторая викторина того же события → ErrConflict.
func (r *QuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	err := r.db.WithContext(ctx).Omit("Questions").Create(quiz).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: event #%d already has a quiz", apperrors.ErrConflict, quiz.EventID)
		}
		return translateError(err)
	}
	return nil
}

// GetByID возвращает викторину по ID
func (r *QuizRepo) GetByID(ctx context.Context, id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &quiz, nil
}

// GetByEventID возвращает викторину события
func (r *QuizRepo) GetByEventID(ctx context.Context, eventID uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&quiz).Error; err != nil {
		return nil, translateError(err)
	}
	return &quiz, nil
}

// List возвращает список викторин с пагинацией
func (r *QuizRepo) List(ctx context.Context, limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.WithContext(ctx).Limit(limit).Offset(offset).Order("id DESC").Find(&quizzes).Error
	return quizzes, translateError(err)
}

// UpdateSettings точечно обновляет настройки викторины
func (r *QuizRepo) UpdateSettings(ctx context.Context, quizID uint, settings repository.QuizSettings) error {
	updates := map[string]interface{}{}
	if settings.Title != nil {
		updates["title"] = *settings.Title
	}
	if settings.ParticipantLimit != nil {
		updates["participant_limit"] = *settings.ParticipantLimit
	}
	if settings.TimePerQuestionSec != nil {
		updates["time_per_question_sec"] = *settings.TimePerQuestionSec
	}
	if settings.TotalTimeLimitSec != nil {
		updates["total_time_limit_sec"] = *settings.TotalTimeLimitSec
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entity.Quiz{}).Where("id = ?", quizID).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Start атомарно переводит викторину в активное состояние.
// - RowsAffected == 0 → викторины нет или она уже завершена
func (r *QuizRepo) Start(ctx context.Context, quizID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.Quiz{}).
		Where("id = ? AND is_ended = ?", quizID, false).
		Updates(map[string]interface{}{
			"is_active":  true,
			"is_started": true,
			"started_at": gorm.Expr("COALESCE(started_at, ?)", at),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrEnded(ctx, quizID)
	}
	return nil
}

// End завершает викторину. Завершенная викторина отклоняет новые подключения и ответы.
func (r *QuizRepo) End(ctx context.Context, quizID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Updates(map[string]interface{}{
			"is_active": false,
			"is_ended":  true,
			"ended_at":  gorm.Expr("COALESCE(ended_at, ?)", at),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *QuizRepo) missingOrEnded(ctx context.Context, quizID uint) error {
	_, err := r.GetByID(ctx, quizID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: quiz #%d", repository.ErrQuizAlreadyEnded, quizID)
}
