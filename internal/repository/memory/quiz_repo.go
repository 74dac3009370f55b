package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository в памяти
type QuizRepo struct {
	store *Store
}

// NewQuizRepo создает репозиторий викторин поверх хранилища
func NewQuizRepo(store *Store) *QuizRepo {
	return &QuizRepo{store: store}
}

func (r *QuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	for _, existing := range s.quizzes {
		if existing.EventID == quiz.EventID {
			return fmt.Errorf("%w: event #%d already has a quiz", apperrors.ErrConflict, quiz.EventID)
		}
	}

	s.nextQuizID++
	now := s.clock.Now()
	quiz.ID = s.nextQuizID
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	if quiz.ParticipantLimit <= 0 {
		quiz.ParticipantLimit = entity.DefaultParticipantLimit
	}
	s.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (r *QuizRepo) GetByID(ctx context.Context, id uint) (*entity.Quiz, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyQuiz(quiz), nil
}

func (r *QuizRepo) GetByEventID(ctx context.Context, eventID uint) (*entity.Quiz, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	for _, quiz := range s.quizzes {
		if quiz.EventID == eventID {
			return copyQuiz(quiz), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *QuizRepo) List(ctx context.Context, limit, offset int) ([]entity.Quiz, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	quizzes := make([]entity.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		quizzes = append(quizzes, *copyQuiz(quiz))
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID > quizzes[j].ID })

	if offset >= len(quizzes) {
		return []entity.Quiz{}, nil
	}
	quizzes = quizzes[offset:]
	if limit > 0 && len(quizzes) > limit {
		quizzes = quizzes[:limit]
	}
	return quizzes, nil
}

func (r *QuizRepo) UpdateSettings(ctx context.Context, quizID uint, settings repository.QuizSettings) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if settings.Title != nil {
		quiz.Title = *settings.Title
	}
	if settings.ParticipantLimit != nil {
		quiz.ParticipantLimit = *settings.ParticipantLimit
	}
	if settings.TimePerQuestionSec != nil {
		quiz.TimePerQuestionSec = *settings.TimePerQuestionSec
	}
	if settings.TotalTimeLimitSec != nil {
		limit := *settings.TotalTimeLimitSec
		quiz.TotalTimeLimitSec = &limit
	}
	quiz.UpdatedAt = s.clock.Now()
	return nil
}

func (r *QuizRepo) Start(ctx context.Context, quizID uint, at time.Time) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if quiz.IsEnded {
		return fmt.Errorf("%w: quiz #%d", repository.ErrQuizAlreadyEnded, quizID)
	}
	quiz.IsActive = true
	quiz.IsStarted = true
	if quiz.StartedAt == nil {
		startedAt := at
		quiz.StartedAt = &startedAt
	}
	quiz.UpdatedAt = at
	return nil
}

func (r *QuizRepo) End(ctx context.Context, quizID uint, at time.Time) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return apperrors.ErrNotFound
	}
	quiz.IsActive = false
	quiz.IsEnded = true
	if quiz.EndedAt == nil {
		endedAt := at
		quiz.EndedAt = &endedAt
	}
	quiz.UpdatedAt = at
	return nil
}
