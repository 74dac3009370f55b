package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/repository/memory"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

func TestParticipationService_JoinCreatesThenResumes(t *testing.T) {
	// Arrange
	env := newServiceEnv(t)
	quiz := env.openQuiz(t, 1, 10, 1, 1)
	ctx := context.Background()

	// Act
	first, err := env.participation.Join(ctx, quiz.ID, "Ann", "Ann@Example.com")
	require.NoError(t, err)
	second, err := env.participation.Join(ctx, quiz.ID, "Ann", "ann@example.com")
	require.NoError(t, err)

	// Assert
	assert.False(t, first.Resumed)
	assert.True(t, second.Resumed, "Повторное подключение продолжает ту же попытку")
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)
	assert.Equal(t, 1, second.Attempt.CurrentQuestion)

	env.broadcaster.AssertNumberOfCalls(t, "BroadcastEventToQuiz", 1)
	env.broadcaster.AssertCalled(t, "BroadcastEventToQuiz", quiz.ID, websocket.EventParticipantJoined, mock.AnythingOfType("service.ParticipantJoinedEvent"))

	stats, err := env.participation.Stats(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActivePlayers)
	assert.Equal(t, int64(2), stats.TotalJoinsLastHour)
}

func TestParticipationService_JoinRejections(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	// Невалидные данные
	quiz := env.openQuiz(t, 1, 10, 1)
	_, err := env.participation.Join(ctx, quiz.ID, "", "a@example.com")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = env.participation.Join(ctx, quiz.ID, "Bob", "not-an-email")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Неизвестная викторина
	_, err = env.participation.Join(ctx, 999, "Bob", "bob@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Не запущенная викторина: участник не создается
	draft, err := env.quizService.CreateQuiz(ctx, CreateQuizInput{EventID: 2, Title: "Draft"})
	require.NoError(t, err)
	_, err = env.participation.Join(ctx, draft.ID, "Bob", "bob@example.com")
	assert.ErrorIs(t, err, apperrors.ErrQuizInactive)

	// Завершенная викторина
	_, err = env.quizService.EndQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	_, err = env.participation.Join(ctx, quiz.ID, "Bob", "bob@example.com")
	assert.ErrorIs(t, err, apperrors.ErrQuizEnded)

	count, err := env.attempts.CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestParticipationService_JoinPopulatesMetadataCache(t *testing.T) {
	// Arrange: кеш метаданных пуст
	env := newServiceEnv(t)
	quiz := env.openQuiz(t, 1, 10, 1)
	cache := newMapCache()
	quizRepo := &countingQuizRepo{QuizRepo: env.quizzes}
	engine := quizengine.New(quizengine.DefaultConfig(), &quizengine.Dependencies{
		QuizRepo:     quizRepo,
		QuestionRepo: env.questions,
		AttemptRepo:  env.attempts,
		CacheRepo:    cache,
		StatsRepo:    memory.NewStatsRepo(),
		Clock:        env.clock,
	}, false)
	participation := NewParticipationService(engine, quizRepo, env.questions, env.participants, env.attempts, env.broadcaster)
	ctx := context.Background()

	// Act
	_, err := participation.Join(ctx, quiz.ID, "Ann", "ann@example.com")
	require.NoError(t, err)
	loadsAfterFirst := quizRepo.loads.Load()
	second, err := participation.Join(ctx, quiz.ID, "Bob", "bob@example.com")
	require.NoError(t, err)

	// Assert
	assert.True(t, cache.has(quizengine.MetadataKey(quiz.ID)), "Первое подключение должно заполнить кеш")
	assert.Equal(t, int64(1), loadsAfterFirst)
	assert.Equal(t, loadsAfterFirst, quizRepo.loads.Load(), "Второе подключение берет викторину из кеша")
	assert.False(t, second.Resumed)

	count, err := env.attempts.CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestParticipationService_ConcurrentJoinsRespectLimit(t *testing.T) {
	// Arrange: лимит 5, 40 разных участников одновременно
	env := newServiceEnv(t)
	quiz := env.openQuiz(t, 1, 5, 1)

	const n = 40
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.participation.Join(context.Background(), quiz.ID, "Player", fmt.Sprintf("p%d@example.com", i))
		}(i)
	}
	close(start)
	wg.Wait()

	// Assert
	joined, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, apperrors.ErrQuizFull):
			full++
			rej, ok := apperrors.AsRejection(err)
			require.True(t, ok)
			assert.Equal(t, "Quiz is full! Maximum 5 participants allowed.", rej.Reason)
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, joined)
	assert.Equal(t, n-5, full)

	count, err := env.attempts.CountByQuiz(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestParticipationService_PlayThrough(t *testing.T) {
	// Arrange
	env := newServiceEnv(t)
	quiz := env.openQuiz(t, 1, 10, 3, 2)
	ctx := context.Background()
	joined, err := env.participation.Join(ctx, quiz.ID, "Ann", "ann@example.com")
	require.NoError(t, err)
	attemptID := joined.Attempt.ID

	// Act & Assert: первый вопрос
	view, err := env.participation.CurrentQuestion(ctx, attemptID)
	require.NoError(t, err)
	require.False(t, view.Completed)
	assert.Equal(t, 1, view.Question.Ordinal)
	assert.Equal(t, 2, view.TotalQuestions)
	assert.Equal(t, 30*time.Second, view.TimeLimit)

	r1, err := env.participation.SubmitAnswer(ctx, quizengine.SubmitRequest{AttemptID: attemptID, QuestionID: view.Question.ID, SelectedOption: optionPtr(1), TimeTakenMs: 1500})
	require.NoError(t, err)
	assert.True(t, r1.Correct)
	assert.Equal(t, 3, r1.Score)

	// Второй вопрос пропущен
	view, err = env.participation.CurrentQuestion(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Question.Ordinal)
	r2, err := env.participation.SubmitAnswer(ctx, quizengine.SubmitRequest{AttemptID: attemptID, QuestionID: view.Question.ID, TimeTakenMs: 2000})
	require.NoError(t, err)
	assert.True(t, r2.Completed)
	assert.Equal(t, 3, r2.Score)

	// Итог
	view, err = env.participation.CurrentQuestion(ctx, attemptID)
	require.NoError(t, err)
	assert.True(t, view.Completed)
	require.NotNil(t, view.Summary)
	assert.Equal(t, 3, view.Summary.Score)
	assert.Equal(t, int64(3500), view.Summary.TotalTimeMs)

	env.broadcaster.AssertCalled(t, "BroadcastEventToQuiz", quiz.ID, websocket.EventAttemptCompleted, mock.AnythingOfType("service.AttemptCompletedEvent"))
	env.broadcaster.AssertCalled(t, "BroadcastEventToQuiz", quiz.ID, websocket.EventLeaderboardUpdated, mock.MatchedBy(func(e LeaderboardUpdatedEvent) bool {
		return len(e.Standings) == 1 && e.Standings[0].AttemptID == attemptID && e.Standings[0].Rank == 1
	}))

	standings, err := env.participation.Leaderboard(ctx, quiz.ID, entity.LeaderboardCompleted)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, "Ann", standings[0].ParticipantName)

	// Повторное подключение после завершения
	_, err = env.participation.Join(ctx, quiz.ID, "Ann", "ann@example.com")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCompleted)
}

func TestParticipationService_ExportAndMetadata(t *testing.T) {
	env := newServiceEnv(t)
	quiz := env.openQuiz(t, 1, 10, 1)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := env.participation.Join(ctx, quiz.ID, "Player", fmt.Sprintf("p%d@example.com", i))
		require.NoError(t, err)
	}

	exported, standings, err := env.participation.ExportStandings(ctx, quiz.ID, entity.LeaderboardLive)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, exported.ID)
	assert.Len(t, standings, 3)

	snapshot, err := env.participation.QuizMetadata(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Friday quiz", snapshot.Title)
	assert.Equal(t, int64(3), snapshot.AttemptCount)
	assert.True(t, snapshot.IsOpen())

	_, err = env.participation.QuizMetadata(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = env.participation.Stats(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
