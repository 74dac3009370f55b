package quizengine

import (
	"context"
	"log"
)

// Engine объединяет компоненты движка с общим жизненным циклом
type Engine struct {
	Limiter     JoinRateLimiter
	Cache       *QuizMetadataCache
	Capacity    *CapacityGuard
	Locks       *LockRegistry
	Scoring     *ScoringTracker
	Leaderboard *LeaderboardRanker
	Stats       *StatsCollector

	memoryLimiter *MemoryJoinLimiter
}

// New собирает движок. Если redisLimiter == false, подключения ограничиваются в памяти процесса.
func New(config *Config, deps *Dependencies, redisLimiter bool) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	cache := NewQuizMetadataCache(config, deps)
	locks := NewLockRegistry(config, deps.clock())

	e := &Engine{
		Cache:       cache,
		Capacity:    NewCapacityGuard(config, deps),
		Locks:       locks,
		Scoring:     NewScoringTracker(config, deps, locks),
		Leaderboard: NewLeaderboardRanker(config, deps),
		Stats:       NewStatsCollector(config, deps),
	}
	if redisLimiter {
		e.Limiter = NewRedisJoinLimiter(config, deps.CacheRepo)
	} else {
		e.memoryLimiter = NewMemoryJoinLimiter(config, deps.clock())
		e.Limiter = e.memoryLimiter
	}
	return e
}

// Run запускает фоновую очистку реестра блокировок и ограничителя в памяти.
// Возвращается после отмены контекста.
func (e *Engine) Run(ctx context.Context) {
	log.Println("[QuizEngine] Background maintenance started")
	done := make(chan struct{})
	if e.memoryLimiter != nil {
		go func() {
			e.memoryLimiter.Run(ctx)
			close(done)
		}()
	} else {
		close(done)
	}
	e.Locks.Run(ctx)
	<-done
	log.Println("[QuizEngine] Background maintenance stopped")
}
