package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

var (
	_ repository.QuizRepository        = (*QuizRepo)(nil)
	_ repository.QuestionRepository    = (*QuestionRepo)(nil)
	_ repository.ParticipantRepository = (*ParticipantRepo)(nil)
	_ repository.AttemptRepository     = (*AttemptRepo)(nil)
	_ repository.StatsRepository       = (*StatsRepo)(nil)
)

type fixture struct {
	clock        *clockwork.FakeClock
	quizzes      *QuizRepo
	questions    *QuestionRepo
	participants *ParticipantRepo
	attempts     *AttemptRepo
}

func newFixture() *fixture {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	store := NewStore(clock)
	return &fixture{
		clock:        clock,
		quizzes:      NewQuizRepo(store),
		questions:    NewQuestionRepo(store),
		participants: NewParticipantRepo(store),
		attempts:     NewAttemptRepo(store),
	}
}

func (f *fixture) activeQuiz(t *testing.T, limit, questionCount int) *entity.Quiz {
	t.Helper()
	ctx := context.Background()

	quiz := &entity.Quiz{EventID: 1, Title: "Live", TimePerQuestionSec: 30, ParticipantLimit: limit}
	require.NoError(t, f.quizzes.Create(ctx, quiz))

	questions := make([]entity.Question, questionCount)
	for i := range questions {
		questions[i] = entity.Question{Text: "Q", Options: entity.StringArray{"A", "B", "C", "D"}, CorrectOption: 0, Points: 10}
	}
	require.NoError(t, f.questions.AppendBatch(ctx, quiz.ID, questions))
	require.NoError(t, f.quizzes.Start(ctx, quiz.ID, f.clock.Now()))

	started, err := f.quizzes.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	return started
}

func TestAttemptRepo_CreateWithinCapacity_ConcurrentJoins(t *testing.T) {
	// Arrange: лимит 3, 10 разных участников подключаются одновременно
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 3, 2)

	var created, full int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		p, err := f.participants.GetOrCreate(ctx, 1, "p", "p"+string(rune('a'+i))+"@example.com")
		require.NoError(t, err)

		wg.Add(1)
		go func(participantID uint) {
			defer wg.Done()
			err := f.attempts.CreateWithinCapacity(ctx, entity.NewAttempt(quiz.ID, participantID, f.clock.Now()))
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case errors.Is(err, repository.ErrCapacityReached):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p.ID)
	}
	wg.Wait()

	// Assert
	assert.Equal(t, int32(3), created, "Создано ровно столько попыток, сколько позволяет лимит")
	assert.Equal(t, int32(7), full)

	count, err := f.attempts.CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAttemptRepo_CreateWithinCapacity_RejectsClosedAndDuplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 10, 1)
	p, err := f.participants.GetOrCreate(ctx, 1, "Ann", "ann@example.com")
	require.NoError(t, err)

	require.NoError(t, f.attempts.CreateWithinCapacity(ctx, entity.NewAttempt(quiz.ID, p.ID, f.clock.Now())))
	err = f.attempts.CreateWithinCapacity(ctx, entity.NewAttempt(quiz.ID, p.ID, f.clock.Now()))
	assert.ErrorIs(t, err, repository.ErrAttemptExists)

	require.NoError(t, f.quizzes.End(ctx, quiz.ID, f.clock.Now()))
	other, err := f.participants.GetOrCreate(ctx, 1, "Bob", "bob@example.com")
	require.NoError(t, err)
	err = f.attempts.CreateWithinCapacity(ctx, entity.NewAttempt(quiz.ID, other.ID, f.clock.Now()))
	assert.ErrorIs(t, err, repository.ErrQuizAlreadyEnded)
}

func TestAttemptRepo_ApplyAnswer_ConcurrentDuplicates(t *testing.T) {
	// Arrange
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 10, 3)
	p, err := f.participants.GetOrCreate(ctx, 1, "Ann", "ann@example.com")
	require.NoError(t, err)
	attempt := entity.NewAttempt(quiz.ID, p.ID, f.clock.Now())
	require.NoError(t, f.attempts.CreateWithinCapacity(ctx, attempt))
	question, err := f.questions.GetByOrdinal(ctx, quiz.ID, 1)
	require.NoError(t, err)

	app := entity.AnswerApplication{
		AttemptID:       attempt.ID,
		QuestionID:      question.ID,
		QuestionOrdinal: 1,
		TotalQuestions:  3,
		IsCorrect:       true,
		Points:          10,
		TimeTakenMs:     1500,
		AnsweredAt:      f.clock.Now(),
	}

	// Act: 20 одинаковых ответов одновременно
	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.attempts.ApplyAnswer(ctx, app); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, int32(1), ok, "Ответ должен примениться ровно один раз")
	stored, err := f.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Score)
	assert.Equal(t, 2, stored.CurrentQuestion)
	assert.Equal(t, int64(1500), stored.TotalTimeMs)
	require.NotNil(t, stored.Participant)
	assert.Equal(t, "Ann", stored.Participant.Name)
}

func TestAttemptRepo_ApplyAnswer_OrdinalMismatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 10, 3)
	p, err := f.participants.GetOrCreate(ctx, 1, "Ann", "ann@example.com")
	require.NoError(t, err)
	attempt := entity.NewAttempt(quiz.ID, p.ID, f.clock.Now())
	require.NoError(t, f.attempts.CreateWithinCapacity(ctx, attempt))

	_, err = f.attempts.ApplyAnswer(ctx, entity.AnswerApplication{AttemptID: attempt.ID, QuestionID: 99, QuestionOrdinal: 2, TotalQuestions: 3})
	assert.ErrorIs(t, err, repository.ErrOrdinalMismatch)
}

func TestAttemptRepo_ApplyAnswer_RejectsEndedQuiz(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 10, 3)
	p, err := f.participants.GetOrCreate(ctx, 1, "Ann", "ann@example.com")
	require.NoError(t, err)
	attempt := entity.NewAttempt(quiz.ID, p.ID, f.clock.Now())
	require.NoError(t, f.attempts.CreateWithinCapacity(ctx, attempt))
	require.NoError(t, f.quizzes.End(ctx, quiz.ID, f.clock.Now()))

	_, err = f.attempts.ApplyAnswer(ctx, entity.AnswerApplication{AttemptID: attempt.ID, QuestionID: 1, QuestionOrdinal: 1, TotalQuestions: 3, IsCorrect: true, Points: 10})

	assert.ErrorIs(t, err, repository.ErrQuizAlreadyEnded)
	stored, err := f.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Score, "Очки не меняются после завершения")
	assert.Equal(t, 1, stored.CurrentQuestion)
}

func TestStore_CanceledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.quizzes.GetByID(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestQuestionRepo_AppendBatch_RejectsStartedQuiz(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.activeQuiz(t, 10, 2)

	err := f.questions.AppendBatch(ctx, quiz.ID, []entity.Question{{Text: "late"}})
	assert.ErrorIs(t, err, repository.ErrQuizAlreadyStarted)

	questions, err := f.questions.ListByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Ordinal)
	assert.Equal(t, 2, questions[1].Ordinal)
}

func TestParticipantRepo_GetOrCreate_CaseInsensitiveEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.participants.GetOrCreate(ctx, 1, "Ann", "Ann@Example.com")
	require.NoError(t, err)
	second, err := f.participants.GetOrCreate(ctx, 1, "Ann", "ann@example.com ")
	require.NoError(t, err)
	otherEvent, err := f.participants.GetOrCreate(ctx, 2, "Ann", "ann@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ID, otherEvent.ID)
}

func TestStatsRepo_PrunesAndCounts(t *testing.T) {
	ctx := context.Background()
	stats := NewStatsRepo()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, stats.AddEvent(ctx, "k", "old", now.Add(-2*time.Hour), time.Hour))
	require.NoError(t, stats.AddEvent(ctx, "k", "recent", now.Add(-10*time.Minute), time.Hour))
	require.NoError(t, stats.AddEvent(ctx, "k", "fresh", now, time.Hour))

	total, err := stats.CountSince(ctx, "k", now.Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "Событие старше срока хранения должно быть удалено")

	active, err := stats.CountSince(ctx, "k", now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}
