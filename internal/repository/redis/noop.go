package redis

import (
	"context"
	"time"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// NoOpCacheRepo - реализация CacheRepository без хранилища.
// Используется, когда Redis отключен: кеш всегда пуст, счетчики не ограничивают.
type NoOpCacheRepo struct{}

// NewNoOpCacheRepo создает пустой кеш
func NewNoOpCacheRepo() *NoOpCacheRepo {
	return &NoOpCacheRepo{}
}

func (n *NoOpCacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (n *NoOpCacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return apperrors.ErrNotFound
}

func (n *NoOpCacheRepo) Delete(ctx context.Context, keys ...string) error {
	return nil
}

// IncrementWindow всегда возвращает 0, поэтому лимит никогда не превышается
func (n *NoOpCacheRepo) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, window, nil
}
