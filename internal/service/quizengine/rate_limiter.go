package quizengine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/metrics"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// RateDecision - решение ограничителя для одного запроса на подключение
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Err возвращает отказ RateLimited для запрещенного запроса
func (d RateDecision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.RejectRetryAfter(apperrors.ErrRateLimited, ReasonRateLimited, d.RetryAfter)
}

// JoinRateLimiter решает, пропускать ли запрос на подключение с данного адреса.
// Ошибки бэкенда не блокируют участников: при сбое запрос пропускается.
type JoinRateLimiter interface {
	Admit(ctx context.Context, clientAddr string) RateDecision
}

// JoinRateKey возвращает ключ счетчика подключений для адреса
func JoinRateKey(clientAddr string) string {
	return fmt.Sprintf("rate_limit:quiz_join:%s", clientAddr)
}

// RedisJoinLimiter - счетчик фиксированного окна в общем кеше
type RedisJoinLimiter struct {
	cache  repository.CacheRepository
	limit  int
	window time.Duration
}

// NewRedisJoinLimiter создает ограничитель на основе CacheRepository
func NewRedisJoinLimiter(config *Config, cache repository.CacheRepository) *RedisJoinLimiter {
	limit, window := joinRateSettings(config)
	return &RedisJoinLimiter{
		cache:  cache,
		limit:  limit,
		window: window,
	}
}

// Admit увеличивает счетчик окна и запрещает запрос, если он превысил лимит
func (l *RedisJoinLimiter) Admit(ctx context.Context, clientAddr string) RateDecision {
	count, ttl, err := l.cache.IncrementWindow(ctx, JoinRateKey(clientAddr), l.window)
	if err != nil {
		// Fail-open: при ошибке Redis пропускаем запрос
		log.Printf("[RateLimiter] WARNING: Redis error for %s, allowing request: %v", clientAddr, err)
		metrics.ObserveRateLimit(true)
		return RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(l.limit) {
		log.Printf("[RateLimiter] Join rate limit exceeded for %s: %d/%d", clientAddr, count, l.limit)
		metrics.ObserveRateLimit(false)
		return RateDecision{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: ttl}
	}

	metrics.ObserveRateLimit(true)
	return RateDecision{Allowed: true, Limit: l.limit, Remaining: remaining}
}

// joinWindow - счетчик подключений адреса в текущем окне
type joinWindow struct {
	start time.Time
	count int
}

// MemoryJoinLimiter - ограничитель в памяти процесса для режима без Redis.
// Фиксированное окно на адрес, как у RedisJoinLimiter: окно открывается первым
// подключением и сбрасывается через window.
type MemoryJoinLimiter struct {
	mu      sync.Mutex
	windows map[string]*joinWindow
	limit   int
	window  time.Duration
	clock   clockwork.Clock
}

// NewMemoryJoinLimiter создает ограничитель в памяти.
// Неположительные лимит и окно заменяются значениями по умолчанию.
func NewMemoryJoinLimiter(config *Config, clock clockwork.Clock) *MemoryJoinLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit, window := joinRateSettings(config)
	return &MemoryJoinLimiter{
		windows: make(map[string]*joinWindow),
		limit:   limit,
		window:  window,
		clock:   clock,
	}
}

// Admit учитывает подключение в окне адреса и запрещает его сверх лимита
func (l *MemoryJoinLimiter) Admit(ctx context.Context, clientAddr string) RateDecision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientAddr]
	if !ok || !now.Before(w.start.Add(l.window)) {
		w = &joinWindow{start: now}
		l.windows[clientAddr] = w
	}
	w.count++

	if w.count > l.limit {
		metrics.ObserveRateLimit(false)
		return RateDecision{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: w.start.Add(l.window).Sub(now)}
	}

	metrics.ObserveRateLimit(true)
	return RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count}
}

// Sweep удаляет истекшие окна
func (l *MemoryJoinLimiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for addr, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, addr)
			removed++
		}
	}
	return removed
}

// joinRateSettings возвращает лимит и окно с подстановкой значений по умолчанию
func joinRateSettings(config *Config) (int, time.Duration) {
	limit, window := DefaultJoinRateLimit, DefaultJoinRateWindow
	if config != nil && config.JoinRateLimit > 0 {
		limit = config.JoinRateLimit
	}
	if config != nil && config.JoinRateWindow > 0 {
		window = config.JoinRateWindow
	}
	return limit, window
}

// Run периодически вызывает Sweep до отмены контекста
func (l *MemoryJoinLimiter) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if removed := l.Sweep(); removed > 0 {
				log.Printf("[RateLimiter] Removed %d expired in-memory join windows", removed)
			}
		}
	}
}
