package quizengine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/metrics"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// JoinOutcome - результат успешного подключения
type JoinOutcome string

const (
	// JoinCreated - создана новая попытка
	JoinCreated JoinOutcome = "created"
	// JoinResumed - участник продолжает существующую незавершенную попытку
	JoinResumed JoinOutcome = "resumed"
)

// JoinResult содержит попытку, с которой участник продолжает викторину
type JoinResult struct {
	Outcome JoinOutcome
	Attempt *entity.Attempt
}

// CapacityGuard решает, может ли участник начать или продолжить викторину.
// Число созданных попыток никогда не превышает лимит: окончательная проверка
// и вставка выполняются одним атомарным шагом в хранилище.
type CapacityGuard struct {
	config      *Config
	attemptRepo repository.AttemptRepository
	clock       clockwork.Clock
}

// NewCapacityGuard создает страж вместимости
func NewCapacityGuard(config *Config, deps *Dependencies) *CapacityGuard {
	return &CapacityGuard{
		config:      config,
		attemptRepo: deps.AttemptRepo,
		clock:       deps.clock(),
	}
}

// TryJoin проверяет состояние викторины по снимку из кеша метаданных, возобновляет
// существующую попытку или создает новую в пределах лимита. Снимок может устареть,
// поэтому хранилище повторно проверяет состояние и лимит при вставке.
func (g *CapacityGuard) TryJoin(ctx context.Context, snapshot *entity.QuizSnapshot, participant *entity.Participant) (*JoinResult, error) {
	result, err := g.tryJoin(ctx, snapshot, participant)
	if err != nil {
		if rej, ok := apperrors.AsRejection(err); ok {
			metrics.ObserveJoin(rej.Type())
		} else {
			metrics.ObserveJoin("error")
		}
		return nil, err
	}
	metrics.ObserveJoin(string(result.Outcome))
	return result, nil
}

func (g *CapacityGuard) tryJoin(ctx context.Context, snapshot *entity.QuizSnapshot, participant *entity.Participant) (*JoinResult, error) {
	quizID := snapshot.QuizID

	// 1. Состояние викторины
	if err := closedQuizRejection(snapshot.IsActive, snapshot.IsEnded); err != nil {
		return nil, err
	}

	// 2. Существующая попытка: завершенная - отказ, незавершенная - продолжение
	existing, err := g.attemptRepo.GetByQuizAndParticipant(ctx, quizID, participant.ID)
	switch {
	case err == nil:
		return g.resume(existing)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, storeFailure("find attempt", err)
	}

	// 3. Дешевая предварительная проверка по снимку. Число попыток только растет,
	// а изменение лимита сбрасывает кеш, поэтому снимок не может ошибочно показать переполнение.
	if snapshot.LooksFull() {
		log.Printf("[CapacityGuard] Quiz #%d is full by cached snapshot (%d/%d)", quizID, snapshot.AttemptCount, snapshot.ParticipantLimit)
		return nil, apperrors.Reject(apperrors.ErrQuizFull, ReasonQuizFull(snapshot.ParticipantLimit))
	}

	// 4. Атомарная проверка лимита и вставка
	attempt := entity.NewAttempt(quizID, participant.ID, g.clock.Now())
	storeCtx, cancel := g.config.withStoreTimeout(ctx)
	defer cancel()

	started := time.Now()
	err = g.attemptRepo.CreateWithinCapacity(storeCtx, attempt)
	metrics.ObserveStoreStep("join", started)

	switch {
	case err == nil:
		log.Printf("[CapacityGuard] Participant #%d joined quiz #%d (attempt #%d)", participant.ID, quizID, attempt.ID)
		return &JoinResult{Outcome: JoinCreated, Attempt: attempt}, nil
	case errors.Is(err, repository.ErrAttemptExists):
		// Параллельное подключение того же участника успело первым
		winner, findErr := g.attemptRepo.GetByQuizAndParticipant(ctx, quizID, participant.ID)
		if findErr != nil {
			return nil, storeFailure("reload attempt", findErr)
		}
		return g.resume(winner)
	case errors.Is(err, repository.ErrCapacityReached):
		log.Printf("[CapacityGuard] Quiz #%d is full, participant #%d rejected", quizID, participant.ID)
		return nil, apperrors.Reject(apperrors.ErrQuizFull, ReasonQuizFull(snapshot.ParticipantLimit))
	}
	if rej := quizStateRejection(err); rej != nil {
		return nil, rej
	}
	return nil, storeFailure("create attempt", err)
}

func (g *CapacityGuard) resume(attempt *entity.Attempt) (*JoinResult, error) {
	if attempt.IsCompleted {
		return nil, apperrors.Reject(apperrors.ErrAlreadyCompleted, ReasonAlreadyCompleted)
	}
	return &JoinResult{Outcome: JoinResumed, Attempt: attempt}, nil
}
