package quizengine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// StatsKey возвращает ключ журнала событий викторины
func StatsKey(quizID uint, kind string) string {
	return fmt.Sprintf("quiz:%d:stats:%s", quizID, kind)
}

const (
	statsKindJoin   = "join"
	statsKindActive = "active"
)

// StatsCollector ведет рекомендательную статистику участия.
// Ошибки журнала никогда не влияют на вызывающего: запись пропускается,
// а чтение возвращает нули.
type StatsCollector struct {
	stats        repository.StatsRepository
	clock        clockwork.Clock
	activeWindow time.Duration
	retention    time.Duration
}

// NewStatsCollector создает сборщик статистики
func NewStatsCollector(config *Config, deps *Dependencies) *StatsCollector {
	return &StatsCollector{
		stats:        deps.StatsRepo,
		clock:        deps.clock(),
		activeWindow: config.StatsActiveWindow,
		retention:    config.StatsRetention,
	}
}

// RecordEvent отмечает участника активным, а подключения дополнительно пишет
// в журнал подключений (каждое событие - отдельная запись)
func (c *StatsCollector) RecordEvent(ctx context.Context, quizID, participantID uint, event entity.ParticipationEvent) {
	now := c.clock.Now()
	member := strconv.FormatUint(uint64(participantID), 10)

	if err := c.stats.AddEvent(ctx, StatsKey(quizID, statsKindActive), member, now, c.retention); err != nil {
		log.Printf("[StatsCollector] WARNING: failed to record %s for quiz #%d: %v", event, quizID, err)
		return
	}

	if event == entity.EventJoin {
		joinMember := member + ":" + uuid.NewString()
		if err := c.stats.AddEvent(ctx, StatsKey(quizID, statsKindJoin), joinMember, now, c.retention); err != nil {
			log.Printf("[StatsCollector] WARNING: failed to record join for quiz #%d: %v", quizID, err)
		}
	}
}

// LiveStats возвращает число активных участников за окно и подключений за срок хранения
func (c *StatsCollector) LiveStats(ctx context.Context, quizID uint) entity.LiveStats {
	now := c.clock.Now()
	stats := entity.LiveStats{QuizID: quizID, Timestamp: now.Unix()}

	active, err := c.stats.CountSince(ctx, StatsKey(quizID, statsKindActive), now.Add(-c.activeWindow))
	if err != nil {
		log.Printf("[StatsCollector] WARNING: failed to read active players for quiz #%d: %v", quizID, err)
		return stats
	}
	joins, err := c.stats.CountSince(ctx, StatsKey(quizID, statsKindJoin), now.Add(-c.retention))
	if err != nil {
		log.Printf("[StatsCollector] WARNING: failed to read joins for quiz #%d: %v", quizID, err)
		return stats
	}

	stats.ActivePlayers = active
	stats.TotalJoinsLastHour = joins
	return stats
}
