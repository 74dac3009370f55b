package memory

import (
	"context"
	"fmt"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository в памяти
type AttemptRepo struct {
	store *Store
}

// NewAttemptRepo создает репозиторий попыток поверх хранилища
func NewAttemptRepo(store *Store) *AttemptRepo {
	return &AttemptRepo{store: store}
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uint) (*entity.Attempt, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyAttempt(attempt, s.participants[attempt.ParticipantID]), nil
}

func (r *AttemptRepo) GetByQuizAndParticipant(ctx context.Context, quizID, participantID uint) (*entity.Attempt, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	id, ok := s.attemptIndex[attemptKey{quizID: quizID, participantID: participantID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyAttempt(s.attempts[id], nil), nil
}

func (r *AttemptRepo) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()

	return s.countAttempts(quizID), nil
}

func (s *Store) countAttempts(quizID uint) int64 {
	var count int64
	for key := range s.attemptIndex {
		if key.quizID == quizID {
			count++
		}
	}
	return count
}

// CreateWithinCapacity проверяет состояние, вместимость и уникальность и вставляет
// попытку, не отпуская мьютекс хранилища между шагами
func (r *AttemptRepo) CreateWithinCapacity(ctx context.Context, attempt *entity.Attempt) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[attempt.QuizID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if quiz.IsEnded {
		return repository.ErrQuizAlreadyEnded
	}
	if !quiz.IsActive {
		return repository.ErrQuizNotActive
	}

	key := attemptKey{quizID: attempt.QuizID, participantID: attempt.ParticipantID}
	if _, exists := s.attemptIndex[key]; exists {
		return fmt.Errorf("%w: quiz #%d participant #%d", repository.ErrAttemptExists, attempt.QuizID, attempt.ParticipantID)
	}
	if s.countAttempts(attempt.QuizID) >= int64(quiz.Capacity()) {
		return repository.ErrCapacityReached
	}

	s.nextAttemptID++
	attempt.ID = s.nextAttemptID
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = s.clock.Now()
	}
	s.attempts[attempt.ID] = copyAttempt(attempt, nil)
	s.attemptIndex[key] = attempt.ID
	return nil
}

func (r *AttemptRepo) HasAnswer(ctx context.Context, attemptID, questionID uint) (bool, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.unlock()

	_, ok := s.answers[answerKey{attemptID: attemptID, questionID: questionID}]
	return ok, nil
}

// ApplyAnswer повторяет проверки postgres-реализации под мьютексом хранилища
func (r *AttemptRepo) ApplyAnswer(ctx context.Context, app entity.AnswerApplication) (*entity.Attempt, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	attempt, ok := s.attempts[app.AttemptID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if quiz, ok := s.quizzes[attempt.QuizID]; ok {
		if quiz.IsEnded {
			return nil, repository.ErrQuizAlreadyEnded
		}
		if !quiz.IsActive {
			return nil, repository.ErrQuizNotActive
		}
	}
	if attempt.IsCompleted {
		return nil, repository.ErrAttemptFinished
	}
	if attempt.CurrentQuestion != app.QuestionOrdinal {
		return nil, fmt.Errorf("%w: attempt #%d is on question %d, got %d",
			repository.ErrOrdinalMismatch, attempt.ID, attempt.CurrentQuestion, app.QuestionOrdinal)
	}

	key := answerKey{attemptID: app.AttemptID, questionID: app.QuestionID}
	if _, exists := s.answers[key]; exists {
		return nil, repository.ErrAnswerExists
	}

	s.nextAnswerID++
	s.answers[key] = &entity.Answer{
		ID:             s.nextAnswerID,
		AttemptID:      app.AttemptID,
		QuestionID:     app.QuestionID,
		SelectedOption: app.SelectedOption,
		IsCorrect:      app.IsCorrect,
		TimeTakenMs:    app.TimeTakenMs,
		AnsweredAt:     app.AnsweredAt,
	}
	attempt.Apply(app)

	return copyAttempt(attempt, nil), nil
}

func (r *AttemptRepo) ListStandings(ctx context.Context, quizID uint, mode entity.LeaderboardMode, limit int) ([]entity.Attempt, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}

	attempts := make([]entity.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID {
			attempts = append(attempts, *copyAttempt(attempt, s.participants[attempt.ParticipantID]))
		}
	}
	s.unlock()

	ordered := entity.SortStandings(mode, attempts)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}
