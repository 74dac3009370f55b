package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository в памяти
type QuestionRepo struct {
	store *Store
}

// NewQuestionRepo создает репозиторий вопросов поверх хранилища
func NewQuestionRepo(store *Store) *QuestionRepo {
	return &QuestionRepo{store: store}
}

func (r *QuestionRepo) AppendBatch(ctx context.Context, quizID uint, questions []entity.Question) error {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if quiz.IsStarted {
		return fmt.Errorf("%w: quiz #%d", repository.ErrQuizAlreadyStarted, quizID)
	}

	now := s.clock.Now()
	for i := range questions {
		s.nextQuestionID++
		questions[i].ID = s.nextQuestionID
		questions[i].QuizID = quizID
		questions[i].Ordinal = quiz.QuestionCount + i + 1
		questions[i].CreatedAt = now
		questions[i].UpdatedAt = now
		s.questions[questions[i].ID] = copyQuestion(&questions[i])
	}
	quiz.QuestionCount += len(questions)
	return nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uint) (*entity.Question, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	question, ok := s.questions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyQuestion(question), nil
}

func (r *QuestionRepo) GetByOrdinal(ctx context.Context, quizID uint, ordinal int) (*entity.Question, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	for _, question := range s.questions {
		if question.QuizID == quizID && question.Ordinal == ordinal {
			return copyQuestion(question), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *QuestionRepo) ListByQuiz(ctx context.Context, quizID uint) ([]entity.Question, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	questions := make([]entity.Question, 0)
	for _, question := range s.questions {
		if question.QuizID == quizID {
			questions = append(questions, *copyQuestion(question))
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Ordinal < questions[j].Ordinal })
	return questions, nil
}

// ParticipantRepo реализует repository.ParticipantRepository в памяти
type ParticipantRepo struct {
	store *Store
}

// NewParticipantRepo создает репозиторий участников поверх хранилища
func NewParticipantRepo(store *Store) *ParticipantRepo {
	return &ParticipantRepo{store: store}
}

func (r *ParticipantRepo) GetOrCreate(ctx context.Context, eventID uint, name, email string) (*entity.Participant, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	key := participantKey{eventID: eventID, email: entity.NormalizeEmail(email)}
	if id, ok := s.participantIndex[key]; ok {
		p := *s.participants[id]
		return &p, nil
	}

	s.nextParticipantID++
	participant := &entity.Participant{
		ID:        s.nextParticipantID,
		EventID:   eventID,
		Name:      name,
		Email:     key.email,
		CreatedAt: s.clock.Now(),
	}
	s.participants[participant.ID] = participant
	s.participantIndex[key] = participant.ID

	p := *participant
	return &p, nil
}

func (r *ParticipantRepo) GetByID(ctx context.Context, id uint) (*entity.Participant, error) {
	s := r.store
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	participant, ok := s.participants[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p := *participant
	return &p, nil
}
