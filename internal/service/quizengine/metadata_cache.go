package quizengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/metrics"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// MetadataKey возвращает ключ кеша снимка викторины
func MetadataKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d:data", quizID)
}

// QuizMetadataCache хранит неавторитетные снимки викторин.
// Любая ошибка кеша считается промахом: решения о вместимости и очках
// принимаются только по авторитетному хранилищу.
type QuizMetadataCache struct {
	cache       repository.CacheRepository
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	ttl         time.Duration
}

// NewQuizMetadataCache создает кеш метаданных
func NewQuizMetadataCache(config *Config, deps *Dependencies) *QuizMetadataCache {
	return &QuizMetadataCache{
		cache:       deps.CacheRepo,
		quizRepo:    deps.QuizRepo,
		attemptRepo: deps.AttemptRepo,
		ttl:         config.MetadataCacheTTL,
	}
}

// Get возвращает снимок из кеша. false - промах или ошибка кеша.
func (c *QuizMetadataCache) Get(ctx context.Context, quizID uint) (*entity.QuizSnapshot, bool) {
	var snapshot entity.QuizSnapshot
	err := c.cache.GetJSON(ctx, MetadataKey(quizID), &snapshot)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[MetadataCache] WARNING: cache read failed for quiz #%d: %v", quizID, err)
		}
		metrics.ObserveCacheLookup(false)
		return nil, false
	}
	metrics.ObserveCacheLookup(true)
	return &snapshot, true
}

// Put сохраняет снимок. Ошибка записи только логируется.
func (c *QuizMetadataCache) Put(ctx context.Context, snapshot *entity.QuizSnapshot) {
	if snapshot == nil {
		return
	}
	if err := c.cache.SetJSON(ctx, MetadataKey(snapshot.QuizID), snapshot, c.ttl); err != nil {
		log.Printf("[MetadataCache] WARNING: cache write failed for quiz #%d: %v", snapshot.QuizID, err)
	}
}

// Invalidate удаляет снимок после изменения викторины администратором
func (c *QuizMetadataCache) Invalidate(ctx context.Context, quizID uint) {
	if err := c.cache.Delete(ctx, MetadataKey(quizID)); err != nil {
		log.Printf("[MetadataCache] WARNING: cache invalidation failed for quiz #%d: %v", quizID, err)
	}
}

// Resolve возвращает снимок из кеша, а при промахе строит его по хранилищу и кеширует
func (c *QuizMetadataCache) Resolve(ctx context.Context, quizID uint) (*entity.QuizSnapshot, error) {
	if snapshot, ok := c.Get(ctx, quizID); ok {
		return snapshot, nil
	}

	quiz, err := c.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, storeFailure("load quiz", err)
	}
	count, err := c.attemptRepo.CountByQuiz(ctx, quizID)
	if err != nil {
		return nil, storeFailure("count attempts", err)
	}

	snapshot := quiz.Snapshot(count)
	c.Put(ctx, snapshot)
	return snapshot, nil
}
