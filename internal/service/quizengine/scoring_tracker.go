package quizengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/metrics"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// SubmitRequest - ответ участника на вопрос. SelectedOption == nil означает пропуск.
type SubmitRequest struct {
	AttemptID      uint
	QuestionID     uint
	SelectedOption *int
	TimeTakenMs    int64
}

// SubmitResult - состояние попытки после применения ответа
type SubmitResult struct {
	Correct         bool
	Score           int
	CurrentQuestion int
	Completed       bool
	Attempt         *entity.Attempt
}

// ScoringTracker проверяет ответы и атомарно продвигает попытки
type ScoringTracker struct {
	config       *Config
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	locks        *LockRegistry
	clock        clockwork.Clock
}

// NewScoringTracker создает трекер. Реестр блокировок передается извне.
func NewScoringTracker(config *Config, deps *Dependencies, locks *LockRegistry) *ScoringTracker {
	return &ScoringTracker{
		config:       config,
		quizRepo:     deps.QuizRepo,
		questionRepo: deps.QuestionRepo,
		attemptRepo:  deps.AttemptRepo,
		locks:        locks,
		clock:        deps.clock(),
	}
}

// Submit применяет ответ под блокировкой пары (попытка, вопрос)
func (t *ScoringTracker) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var result *SubmitResult
	err := t.locks.WithLock(req.AttemptID, req.QuestionID, func() error {
		var err error
		result, err = t.submit(ctx, req)
		return err
	})

	switch {
	case err == nil:
		if result.Correct {
			metrics.ObserveAnswer("correct")
		} else {
			metrics.ObserveAnswer("incorrect")
		}
	default:
		if rej, ok := apperrors.AsRejection(err); ok {
			metrics.ObserveAnswer(rej.Type())
		} else {
			metrics.ObserveAnswer("error")
		}
	}
	return result, err
}

// submit выполняет проверки по порядку: викторина открыта, вопрос текущий,
// ответа еще нет. Последнее слово за хранилищем, поэтому метод корректен
// и без удерживаемой блокировки.
func (t *ScoringTracker) submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	attempt, err := t.attemptRepo.GetByID(ctx, req.AttemptID)
	if err != nil {
		return nil, storeFailure("load attempt", err)
	}
	quiz, err := t.quizRepo.GetByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, storeFailure("load quiz", err)
	}
	question, err := t.questionRepo.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, storeFailure("load question", err)
	}
	if question.QuizID != quiz.ID {
		return nil, fmt.Errorf("%w: question #%d does not belong to quiz #%d", apperrors.ErrValidation, question.ID, quiz.ID)
	}
	if req.SelectedOption != nil && !question.IsValidOption(*req.SelectedOption) {
		return nil, fmt.Errorf("%w: option %d is out of range", apperrors.ErrValidation, *req.SelectedOption)
	}

	// 1. Викторина активна и не завершена
	if err := closedQuizRejection(quiz.IsActive, quiz.IsEnded); err != nil {
		return nil, err
	}

	// 2. Вопрос совпадает с текущим вопросом попытки
	if attempt.IsCompleted || question.Ordinal != attempt.CurrentQuestion {
		return nil, t.mismatchRejection(ctx, attempt, question)
	}

	// 3. Ответа на этот вопрос еще нет
	answered, err := t.attemptRepo.HasAnswer(ctx, attempt.ID, question.ID)
	if err != nil {
		return nil, storeFailure("check answer", err)
	}
	if answered {
		return nil, apperrors.Reject(apperrors.ErrDuplicateAnswer, ReasonDuplicateAnswer)
	}

	isCorrect := question.IsCorrect(req.SelectedOption)
	app := entity.AnswerApplication{
		AttemptID:       attempt.ID,
		QuestionID:      question.ID,
		QuestionOrdinal: question.Ordinal,
		TotalQuestions:  quiz.QuestionCount,
		SelectedOption:  req.SelectedOption,
		IsCorrect:       isCorrect,
		Points:          question.PointsFor(isCorrect),
		TimeTakenMs:     clampTimeTaken(req.TimeTakenMs, question.EffectiveTimeLimit(quiz.TimePerQuestionSec)),
		AnsweredAt:      t.clock.Now(),
	}

	storeCtx, cancel := t.config.withStoreTimeout(ctx)
	defer cancel()

	started := time.Now()
	updated, err := t.attemptRepo.ApplyAnswer(storeCtx, app)
	metrics.ObserveStoreStep("answer", started)
	if err != nil {
		return nil, t.applyFailure(ctx, attempt, question, err)
	}

	if updated.IsCompleted {
		log.Printf("[ScoringTracker] Attempt #%d completed quiz #%d with score %d", updated.ID, quiz.ID, updated.Score)
	}

	return &SubmitResult{
		Correct:         isCorrect,
		Score:           updated.Score,
		CurrentQuestion: updated.CurrentQuestion,
		Completed:       updated.IsCompleted,
		Attempt:         updated,
	}, nil
}

// mismatchRejection уточняет рассинхронизацию: повтор уже принятого ответа - это
// DuplicateAnswer, ответ в завершенной попытке - AlreadyCompleted, иначе StaleQuestion
func (t *ScoringTracker) mismatchRejection(ctx context.Context, attempt *entity.Attempt, question *entity.Question) error {
	answered, err := t.attemptRepo.HasAnswer(ctx, attempt.ID, question.ID)
	if err != nil {
		return storeFailure("check answer", err)
	}
	switch {
	case answered:
		return apperrors.Reject(apperrors.ErrDuplicateAnswer, ReasonDuplicateAnswer)
	case attempt.IsCompleted:
		return apperrors.Reject(apperrors.ErrAlreadyCompleted, ReasonAlreadyCompleted)
	default:
		return apperrors.Reject(apperrors.ErrStaleQuestion, ReasonStaleQuestion)
	}
}

// applyFailure переводит отказ атомарного шага. Попытка могла продвинуться
// параллельным запросом, который прошел мимо блокировки, а викторина - завершиться.
func (t *ScoringTracker) applyFailure(ctx context.Context, attempt *entity.Attempt, question *entity.Question, err error) error {
	if rej := quizStateRejection(err); rej != nil {
		return rej
	}
	switch {
	case errors.Is(err, repository.ErrAnswerExists):
		return apperrors.Reject(apperrors.ErrDuplicateAnswer, ReasonDuplicateAnswer)
	case errors.Is(err, repository.ErrOrdinalMismatch):
		return t.mismatchRejection(ctx, attempt, question)
	case errors.Is(err, repository.ErrAttemptFinished):
		completed := *attempt
		completed.IsCompleted = true
		return t.mismatchRejection(ctx, &completed, question)
	}
	return storeFailure("apply answer", err)
}

// clampTimeTaken ограничивает время ответа диапазоном [0, лимит вопроса]
func clampTimeTaken(timeTakenMs int64, limit time.Duration) int64 {
	if timeTakenMs < 0 {
		return 0
	}
	if limitMs := limit.Milliseconds(); limitMs > 0 && timeTakenMs > limitMs {
		return limitMs
	}
	return timeTakenMs
}
