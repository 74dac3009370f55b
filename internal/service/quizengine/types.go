package quizengine

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// Значения по умолчанию
const (
	DefaultJoinRateLimit          = 50
	DefaultJoinRateWindow         = 60 * time.Second
	DefaultMetadataCacheTTL       = 300 * time.Second
	DefaultLockRegistryMaxEntries = 1000
	DefaultLockRegistryKeep       = 500
	DefaultLockSweepInterval      = time.Minute
	DefaultLeaderboardLimit       = 50
	DefaultStatsActiveWindow      = 5 * time.Minute
	DefaultStatsRetention         = time.Hour
	DefaultStoreTimeout           = 800 * time.Millisecond
)

// Config содержит настройки всех компонентов движка
type Config struct {
	// Ограничение частоты подключений с одного адреса
	JoinRateLimit  int
	JoinRateWindow time.Duration

	// Кеш метаданных викторины
	MetadataCacheTTL time.Duration

	// Реестр блокировок ответов
	LockRegistryMaxEntries int // Порог, после которого запускается вытеснение
	LockRegistryKeep       int // Сколько недавно использованных записей оставить
	LockSweepInterval      time.Duration

	LeaderboardLimit int

	// Окна статистики участия
	StatsActiveWindow time.Duration
	StatsRetention    time.Duration

	// Ограничение времени одного атомарного шага хранилища
	StoreTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		JoinRateLimit:          DefaultJoinRateLimit,
		JoinRateWindow:         DefaultJoinRateWindow,
		MetadataCacheTTL:       DefaultMetadataCacheTTL,
		LockRegistryMaxEntries: DefaultLockRegistryMaxEntries,
		LockRegistryKeep:       DefaultLockRegistryKeep,
		LockSweepInterval:      DefaultLockSweepInterval,
		LeaderboardLimit:       DefaultLeaderboardLimit,
		StatsActiveWindow:      DefaultStatsActiveWindow,
		StatsRetention:         DefaultStatsRetention,
		StoreTimeout:           DefaultStoreTimeout,
	}
}

// Dependencies содержит зависимости компонентов движка
type Dependencies struct {
	QuizRepo     repository.QuizRepository
	QuestionRepo repository.QuestionRepository
	AttemptRepo  repository.AttemptRepository
	CacheRepo    repository.CacheRepository // redis или NoOp, выбирается при старте
	StatsRepo    repository.StatsRepository
	Clock        clockwork.Clock
}

func (d *Dependencies) clock() clockwork.Clock {
	if d.Clock == nil {
		return clockwork.NewRealClock()
	}
	return d.Clock
}
