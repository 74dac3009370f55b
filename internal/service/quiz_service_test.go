package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

func TestQuizService_CreateQuizDefaults(t *testing.T) {
	env := newServiceEnv(t)

	quiz, err := env.quizService.CreateQuiz(context.Background(), CreateQuizInput{EventID: 7, Title: "  Pub quiz  "})

	require.NoError(t, err)
	assert.Equal(t, "Pub quiz", quiz.Title)
	assert.Equal(t, entity.DefaultParticipantLimit, quiz.ParticipantLimit)
	assert.Equal(t, 30, quiz.TimePerQuestionSec)
	assert.False(t, quiz.IsActive)

	// Одна викторина на событие
	_, err = env.quizService.CreateQuiz(context.Background(), CreateQuizInput{EventID: 7, Title: "Second"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestQuizService_CreateQuizValidation(t *testing.T) {
	env := newServiceEnv(t)
	zero := 0

	tests := []struct {
		name  string
		input CreateQuizInput
	}{
		{"missing event", CreateQuizInput{Title: "Quiz"}},
		{"blank title", CreateQuizInput{EventID: 1, Title: "   "}},
		{"negative limit", CreateQuizInput{EventID: 1, Title: "Quiz", ParticipantLimit: -1}},
		{"zero total time", CreateQuizInput{EventID: 1, Title: "Quiz", TotalTimeLimitSec: &zero}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.quizService.CreateQuiz(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestQuizService_QuestionsOnlyBeforeStart(t *testing.T) {
	// Arrange
	env := newServiceEnv(t)
	ctx := context.Background()
	quiz, err := env.quizService.CreateQuiz(ctx, CreateQuizInput{EventID: 1, Title: "Quiz"})
	require.NoError(t, err)

	// Без вопросов запуск невозможен
	_, err = env.quizService.StartQuiz(ctx, quiz.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Некорректный вопрос
	_, err = env.quizService.AddQuestions(ctx, quiz.ID, []QuestionInput{{Text: "Q", Options: []string{"A", "B"}}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Act
	added, err := env.quizService.AddQuestions(ctx, quiz.ID, []QuestionInput{
		{Text: "Q1", Options: []string{"A", "B", "C", "D"}, CorrectOption: 2},
		{Text: "Q2", Options: []string{"A", "B", "C", "D"}, CorrectOption: 0, Points: 5},
	})
	require.NoError(t, err)
	started, err := env.quizService.StartQuiz(ctx, quiz.ID)
	require.NoError(t, err)

	// Assert
	require.Len(t, added, 2)
	assert.Equal(t, 1, added[0].Ordinal)
	assert.Equal(t, 1, added[0].Points, "Стоимость по умолчанию - 1")
	assert.Equal(t, 2, added[1].Ordinal)
	assert.True(t, started.IsActive)
	assert.Equal(t, 2, started.QuestionCount)

	_, err = env.quizService.AddQuestions(ctx, quiz.ID, []QuestionInput{{Text: "Q3", Options: []string{"A", "B", "C", "D"}}})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	questions, err := env.quizService.ListQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestQuizService_EndQuizInvalidatesAndBroadcasts(t *testing.T) {
	// Arrange: сервис с моком кеша
	env := newServiceEnv(t)
	invalidator := new(MockInvalidator)
	invalidator.On("Invalidate", mock.Anything, mock.Anything).Return()
	svc := NewQuizService(env.quizzes, env.questions, invalidator, env.broadcaster, env.clock, 0)
	quiz := env.openQuiz(t, 1, 10, 1)

	// Act
	ended, err := svc.EndQuiz(context.Background(), quiz.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, ended.IsEnded)
	invalidator.AssertCalled(t, "Invalidate", mock.Anything, quiz.ID)
	env.broadcaster.AssertCalled(t, "BroadcastEventToQuiz", quiz.ID, websocket.EventQuizEnded,
		QuizEndedEvent{QuizID: quiz.ID, EndedAt: env.clock.Now().Unix()})

	// Завершенную викторину нельзя запустить снова
	_, err = svc.StartQuiz(context.Background(), quiz.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestQuizService_UpdateSettings(t *testing.T) {
	env := newServiceEnv(t)
	invalidator := new(MockInvalidator)
	invalidator.On("Invalidate", mock.Anything, mock.Anything).Return()
	svc := NewQuizService(env.quizzes, env.questions, invalidator, env.broadcaster, env.clock, 50)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(ctx, CreateQuizInput{EventID: 3, Title: "Quiz"})
	require.NoError(t, err)
	assert.Equal(t, 50, quiz.ParticipantLimit)

	bad := 0
	_, err = svc.UpdateSettings(ctx, quiz.ID, repository.QuizSettings{ParticipantLimit: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	invalidator.AssertNotCalled(t, "Invalidate", mock.Anything, quiz.ID)

	limit := 250
	updated, err := svc.UpdateSettings(ctx, quiz.ID, repository.QuizSettings{ParticipantLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 250, updated.ParticipantLimit)
	invalidator.AssertCalled(t, "Invalidate", mock.Anything, quiz.ID)

	_, err = svc.UpdateSettings(ctx, 999, repository.QuizSettings{ParticipantLimit: &limit})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
