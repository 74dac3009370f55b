package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// GetOrCreate находит участника по (event_id, email) или создает его.
// Параллельная регистрация того же email заканчивается повторным чтением.
func (r *ParticipantRepo) GetOrCreate(ctx context.Context, eventID uint, name, email string) (*entity.Participant, error) {
	email = entity.NormalizeEmail(email)

	participant, err := r.findByEmail(ctx, eventID, email)
	if err == nil {
		return participant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateError(err)
	}

	participant = &entity.Participant{EventID: eventID, Name: name, Email: email}
	if err := r.db.WithContext(ctx).Create(participant).Error; err != nil {
		if isUniqueViolation(err) {
			existing, findErr := r.findByEmail(ctx, eventID, email)
			return existing, translateError(findErr)
		}
		return nil, translateError(err)
	}
	return participant, nil
}

// GetByID возвращает участника по ID
func (r *ParticipantRepo) GetByID(ctx context.Context, id uint) (*entity.Participant, error) {
	var participant entity.Participant
	if err := r.db.WithContext(ctx).First(&participant, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &participant, nil
}

func (r *ParticipantRepo) findByEmail(ctx context.Context, eventID uint, email string) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND email = ?", eventID, email).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}
