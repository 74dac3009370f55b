package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Кеш не авторитетен: отсутствие ключа возвращается как apperrors.ErrNotFound.
type CacheRepository interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// IncrementWindow увеличивает счетчик фиксированного окна. При первом увеличении
	// ключу назначается срок жизни window. Возвращает новое значение и оставшийся TTL.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// StatsRepository - журнал событий участия во временных упорядоченных множествах
type StatsRepository interface {
	// AddEvent добавляет (или обновляет) member с отметкой времени at и удаляет
	// записи старше retention.
	AddEvent(ctx context.Context, key, member string, at time.Time, retention time.Duration) error
	// CountSince возвращает число записей с отметкой времени не раньше since
	CountSince(ctx context.Context, key string, since time.Time) (int64, error)
}
