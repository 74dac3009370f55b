package quizengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/repository/memory"
)

func TestStatsCollector_ActiveAndJoins(t *testing.T) {
	// Arrange
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	collector := NewStatsCollector(DefaultConfig(), &Dependencies{StatsRepo: memory.NewStatsRepo(), Clock: clock})
	ctx := context.Background()

	// Act: два подключения одного участника в одну секунду и ответ другого
	collector.RecordEvent(ctx, 1, 10, entity.EventJoin)
	collector.RecordEvent(ctx, 1, 10, entity.EventJoin)
	collector.RecordEvent(ctx, 1, 11, entity.EventAnswer)

	// Assert
	stats := collector.LiveStats(ctx, 1)
	assert.Equal(t, int64(2), stats.ActivePlayers)
	assert.Equal(t, int64(2), stats.TotalJoinsLastHour, "Подключения в одну секунду не должны схлопываться")
	assert.Equal(t, clock.Now().Unix(), stats.Timestamp)

	// Через 6 минут активных нет, но подключения за час учитываются
	clock.Advance(6 * time.Minute)
	stats = collector.LiveStats(ctx, 1)
	assert.Zero(t, stats.ActivePlayers)
	assert.Equal(t, int64(2), stats.TotalJoinsLastHour)

	// Через 2 часа статистика пуста
	clock.Advance(2 * time.Hour)
	stats = collector.LiveStats(ctx, 1)
	assert.Zero(t, stats.TotalJoinsLastHour)

	// Другая викторина не затронута
	assert.Zero(t, collector.LiveStats(ctx, 2).ActivePlayers)
}

func TestStatsCollector_ErrorsReportZeros(t *testing.T) {
	mockStats := new(MockStatsRepo)
	mockStats.On("AddEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	mockStats.On("CountSince", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("redis down"))

	collector := NewStatsCollector(DefaultConfig(), &Dependencies{StatsRepo: mockStats, Clock: clockwork.NewFakeClock()})
	ctx := context.Background()

	// Запись не паникует и не возвращает ошибку
	collector.RecordEvent(ctx, 1, 1, entity.EventJoin)
	stats := collector.LiveStats(ctx, 1)

	assert.Equal(t, uint(1), stats.QuizID)
	assert.Zero(t, stats.ActivePlayers)
	assert.Zero(t, stats.TotalJoinsLastHour)
	// После ошибки активной записи журнал подключений не трогается
	mockStats.AssertNumberOfCalls(t, "AddEvent", 1)
}
