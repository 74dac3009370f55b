package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// StatsRepo реализует repository.StatsRepository на sorted set:
// score - unix-время события, member - идентификатор события или участника.
type StatsRepo struct {
	client redis.UniversalClient
}

// NewStatsRepo создает репозиторий статистики участия
func NewStatsRepo(client redis.UniversalClient) (*StatsRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for StatsRepo")
	}
	return &StatsRepo{client: client}, nil
}

// AddEvent добавляет событие и удаляет устаревшие записи одним pipeline
func (r *StatsRepo) AddEvent(ctx context.Context, key, member string, at time.Time, retention time.Duration) error {
	cutoff := at.Add(-retention).Unix()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(at.Unix()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, retention)
	_, err := pipe.Exec(ctx)
	return err
}

// CountSince возвращает число событий с отметкой времени не раньше since
func (r *StatsRepo) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	return r.client.ZCount(ctx, key, strconv.FormatInt(since.Unix(), 10), "+inf").Result()
}
