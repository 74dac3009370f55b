package memory

import (
	"context"
	"sync"
	"time"
)

// StatsRepo реализует repository.StatsRepository в памяти:
// для каждого ключа хранится member → время последнего события
type StatsRepo struct {
	mu     sync.Mutex
	events map[string]map[string]time.Time
}

// NewStatsRepo создает журнал статистики в памяти
func NewStatsRepo() *StatsRepo {
	return &StatsRepo{events: make(map[string]map[string]time.Time)}
}

func (r *StatsRepo) AddEvent(ctx context.Context, key, member string, at time.Time, retention time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.events[key]
	if !ok {
		set = make(map[string]time.Time)
		r.events[key] = set
	}
	set[member] = at

	cutoff := at.Add(-retention)
	for m, ts := range set {
		if ts.Before(cutoff) {
			delete(set, m)
		}
	}
	return nil
}

func (r *StatsRepo) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, ts := range r.events[key] {
		if !ts.Before(since) {
			count++
		}
	}
	return count, nil
}
