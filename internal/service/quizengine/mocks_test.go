package quizengine

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/repository/memory"
	redisrepo "github.com/yourusername/livequiz-api/internal/repository/redis"
)

// ============================================================================
// Моки
// ============================================================================

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	if fn, ok := args.Get(0).(func(dest interface{})); ok {
		fn(dest)
		return nil
	}
	return args.Error(0)
}

func (m *MockCacheRepo) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Get(1).(time.Duration), args.Error(2)
}

// MockStatsRepo реализует repository.StatsRepository
type MockStatsRepo struct {
	mock.Mock
}

func (m *MockStatsRepo) AddEvent(ctx context.Context, key, member string, at time.Time, retention time.Duration) error {
	args := m.Called(ctx, key, member, at, retention)
	return args.Error(0)
}

func (m *MockStatsRepo) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	args := m.Called(ctx, key, since)
	return args.Get(0).(int64), args.Error(1)
}

// ============================================================================
// Окружение на хранилище в памяти
// ============================================================================

type testEnv struct {
	clock        *clockwork.FakeClock
	config       *Config
	deps         *Dependencies
	quizzes      *memory.QuizRepo
	questions    *memory.QuestionRepo
	participants *memory.ParticipantRepo
	attempts     *memory.AttemptRepo
	nextEventID  uint
}

func newTestEnv() *testEnv {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	env := &testEnv{
		clock:        clock,
		config:       DefaultConfig(),
		quizzes:      memory.NewQuizRepo(store),
		questions:    memory.NewQuestionRepo(store),
		participants: memory.NewParticipantRepo(store),
		attempts:     memory.NewAttemptRepo(store),
	}
	env.deps = &Dependencies{
		QuizRepo:     env.quizzes,
		QuestionRepo: env.questions,
		AttemptRepo:  env.attempts,
		CacheRepo:    redisrepo.NewNoOpCacheRepo(),
		StatsRepo:    memory.NewStatsRepo(),
		Clock:        clock,
	}
	return env
}

// createQuiz создает активную викторину с вопросами указанной стоимости
func (e *testEnv) createQuiz(t *testing.T, limit int, points ...int) *entity.Quiz {
	t.Helper()
	ctx := context.Background()

	e.nextEventID++
	quiz := &entity.Quiz{EventID: e.nextEventID, Title: "Live quiz", TimePerQuestionSec: 30, ParticipantLimit: limit}
	require.NoError(t, e.quizzes.Create(ctx, quiz))

	questions := make([]entity.Question, len(points))
	for i, p := range points {
		questions[i] = entity.Question{
			Text:          "Question",
			Options:       entity.StringArray{"A", "B", "C", "D"},
			CorrectOption: 0,
			Points:        p,
		}
	}
	require.NoError(t, e.questions.AppendBatch(ctx, quiz.ID, questions))
	require.NoError(t, e.quizzes.Start(ctx, quiz.ID, e.clock.Now()))

	started, err := e.quizzes.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	return started
}

func (e *testEnv) participant(t *testing.T, quiz *entity.Quiz, email string) *entity.Participant {
	t.Helper()
	p, err := e.participants.GetOrCreate(context.Background(), quiz.EventID, email, email)
	require.NoError(t, err)
	return p
}

func (e *testEnv) question(t *testing.T, quiz *entity.Quiz, ordinal int) *entity.Question {
	t.Helper()
	q, err := e.questions.GetByOrdinal(context.Background(), quiz.ID, ordinal)
	require.NoError(t, err)
	return q
}

func optionPtr(v int) *int { return &v }
