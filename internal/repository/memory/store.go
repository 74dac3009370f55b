// Package memory содержит авторитетное хранилище в памяти процесса.
// Используется в режиме database.driver=memory и в тестах конкурентности:
// все проверки и изменения выполняются под одним мьютексом, что дает
// те же гарантии атомарности, что и транзакции postgres.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

type answerKey struct {
	attemptID  uint
	questionID uint
}

type attemptKey struct {
	quizID        uint
	participantID uint
}

type participantKey struct {
	eventID uint
	email   string
}

// Store - общее состояние всех репозиториев в памяти
type Store struct {
	mu    sync.Mutex
	clock clockwork.Clock

	quizzes      map[uint]*entity.Quiz
	questions    map[uint]*entity.Question
	participants map[uint]*entity.Participant
	attempts     map[uint]*entity.Attempt
	answers      map[answerKey]*entity.Answer

	attemptIndex     map[attemptKey]uint
	participantIndex map[participantKey]uint

	nextQuizID        uint
	nextQuestionID    uint
	nextParticipantID uint
	nextAttemptID     uint
	nextAnswerID      uint
}

// NewStore создает пустое хранилище
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:            clock,
		quizzes:          make(map[uint]*entity.Quiz),
		questions:        make(map[uint]*entity.Question),
		participants:     make(map[uint]*entity.Participant),
		attempts:         make(map[uint]*entity.Attempt),
		answers:          make(map[answerKey]*entity.Answer),
		attemptIndex:     make(map[attemptKey]uint),
		participantIndex: make(map[participantKey]uint),
	}
}

// lock захватывает мьютекс хранилища, если контекст еще жив
func (s *Store) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	s.mu.Lock()
	return nil
}

func (s *Store) unlock() {
	s.mu.Unlock()
}

func copyAttempt(a *entity.Attempt, participant *entity.Participant) *entity.Attempt {
	out := *a
	if a.CompletedAt != nil {
		completedAt := *a.CompletedAt
		out.CompletedAt = &completedAt
	}
	if participant != nil {
		p := *participant
		out.Participant = &p
	}
	return &out
}

func copyQuiz(q *entity.Quiz) *entity.Quiz {
	out := *q
	out.Questions = nil
	return &out
}

func copyQuestion(q *entity.Question) *entity.Question {
	out := *q
	out.Options = append(entity.StringArray(nil), q.Options...)
	return &out
}
