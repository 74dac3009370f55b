package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/repository/memory"
	redisrepo "github.com/yourusername/livequiz-api/internal/repository/redis"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
)

// ============================================================================
// Моки
// ============================================================================

// MockBroadcaster реализует EventBroadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastEventToQuiz(quizID uint, eventType string, data interface{}) error {
	args := m.Called(quizID, eventType, data)
	return args.Error(0)
}

// MockInvalidator реализует MetadataInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, quizID uint) {
	m.Called(ctx, quizID)
}

// mapCache - CacheRepository в памяти теста, хранит значения в JSON как Redis
type mapCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string][]byte)}
}

func (c *mapCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *mapCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *mapCache) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, window, nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

// countingQuizRepo считает чтения викторины из хранилища
type countingQuizRepo struct {
	*memory.QuizRepo
	loads atomic.Int64
}

func (r *countingQuizRepo) GetByID(ctx context.Context, id uint) (*entity.Quiz, error) {
	r.loads.Add(1)
	return r.QuizRepo.GetByID(ctx, id)
}

// ============================================================================
// Окружение
// ============================================================================

type serviceEnv struct {
	clock         *clockwork.FakeClock
	store         *memory.Store
	quizzes       *memory.QuizRepo
	questions     *memory.QuestionRepo
	participants  *memory.ParticipantRepo
	attempts      *memory.AttemptRepo
	engine        *quizengine.Engine
	broadcaster   *MockBroadcaster
	participation *ParticipationService
	quizService   *QuizService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	env := &serviceEnv{
		clock:        clock,
		store:        store,
		quizzes:      memory.NewQuizRepo(store),
		questions:    memory.NewQuestionRepo(store),
		participants: memory.NewParticipantRepo(store),
		attempts:     memory.NewAttemptRepo(store),
		broadcaster:  new(MockBroadcaster),
	}
	env.broadcaster.On("BroadcastEventToQuiz", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	env.engine = quizengine.New(quizengine.DefaultConfig(), &quizengine.Dependencies{
		QuizRepo:     env.quizzes,
		QuestionRepo: env.questions,
		AttemptRepo:  env.attempts,
		CacheRepo:    redisrepo.NewNoOpCacheRepo(),
		StatsRepo:    memory.NewStatsRepo(),
		Clock:        clock,
	}, false)

	env.participation = NewParticipationService(env.engine, env.quizzes, env.questions, env.participants, env.attempts, env.broadcaster)
	env.quizService = NewQuizService(env.quizzes, env.questions, env.engine.Cache, env.broadcaster, clock, 0)
	return env
}

// openQuiz создает и запускает викторину с вопросами указанной стоимости
func (e *serviceEnv) openQuiz(t *testing.T, eventID uint, limit int, points ...int) *entity.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := e.quizService.CreateQuiz(ctx, CreateQuizInput{EventID: eventID, Title: "Friday quiz", ParticipantLimit: limit})
	require.NoError(t, err)

	inputs := make([]QuestionInput, len(points))
	for i, p := range points {
		inputs[i] = QuestionInput{Text: "Question", Options: []string{"A", "B", "C", "D"}, CorrectOption: 1, Points: p}
	}
	_, err = e.quizService.AddQuestions(ctx, quiz.ID, inputs)
	require.NoError(t, err)

	started, err := e.quizService.StartQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	return started
}

func optionPtr(v int) *int { return &v }
