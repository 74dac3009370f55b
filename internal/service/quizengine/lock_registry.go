package quizengine

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/metrics"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

type lockKey struct {
	attemptID  uint
	questionID uint
}

type lockEntry struct {
	mu       sync.Mutex
	refs     int // сколько вызовов сейчас используют запись; защищено LockRegistry.mu
	lastUsed time.Time
}

// LockRegistry выдает неблокирующую взаимоисключающую блокировку на пару
// (попытка, вопрос). Записи, которые кто-то использует, никогда не вытесняются,
// поэтому два параллельных вызова для одной пары всегда видят один мьютекс.
type LockRegistry struct {
	mu            sync.Mutex
	entries       map[lockKey]*lockEntry
	maxEntries    int
	keep          int
	sweepInterval time.Duration
	clock         clockwork.Clock
}

// NewLockRegistry создает реестр. Жизненным циклом владеет приложение:
// реестр создается один раз при старте и чистится через Run до остановки.
func NewLockRegistry(config *Config, clock clockwork.Clock) *LockRegistry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	keep := config.LockRegistryKeep
	if keep > config.LockRegistryMaxEntries {
		keep = config.LockRegistryMaxEntries
	}
	return &LockRegistry{
		entries:       make(map[lockKey]*lockEntry),
		maxEntries:    config.LockRegistryMaxEntries,
		keep:          keep,
		sweepInterval: config.LockSweepInterval,
		clock:         clock,
	}
}

// WithLock выполняет fn, удерживая блокировку пары. Если блокировка уже занята,
// fn не вызывается и возвращается отказ SubmissionBusy.
func (r *LockRegistry) WithLock(attemptID, questionID uint, fn func() error) error {
	entry := r.acquire(lockKey{attemptID: attemptID, questionID: questionID})
	defer r.release(entry)

	if !entry.mu.TryLock() {
		log.Printf("[LockRegistry] Submission for attempt #%d question #%d already in progress", attemptID, questionID)
		return apperrors.Reject(apperrors.ErrSubmissionBusy, ReasonSubmissionBusy)
	}
	defer entry.mu.Unlock()

	return fn()
}

// acquire атомарно находит или создает запись и помечает ее используемой
func (r *LockRegistry) acquire(key lockKey) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		entry = &lockEntry{}
		r.entries[key] = entry
	}
	entry.refs++
	entry.lastUsed = r.clock.Now()

	if !ok && len(r.entries) > r.maxEntries {
		r.evictLocked()
	}
	return entry
}

func (r *LockRegistry) release(entry *lockEntry) {
	r.mu.Lock()
	entry.refs--
	entry.lastUsed = r.clock.Now()
	r.mu.Unlock()
}

// evictLocked оставляет keep самых недавно использованных свободных записей.
// Вызывается под r.mu.
func (r *LockRegistry) evictLocked() {
	type idle struct {
		key      lockKey
		lastUsed time.Time
	}
	candidates := make([]idle, 0, len(r.entries))
	for key, entry := range r.entries {
		if entry.refs == 0 {
			candidates = append(candidates, idle{key: key, lastUsed: entry.lastUsed})
		}
	}
	if len(candidates) <= r.keep {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed.After(candidates[j].lastUsed)
	})
	for _, c := range candidates[r.keep:] {
		delete(r.entries, c.key)
	}
	log.Printf("[LockRegistry] Evicted %d idle entries, %d remain", len(candidates)-r.keep, len(r.entries))
	metrics.SetLockRegistryEntries(len(r.entries))
}

// Sweep удаляет свободные записи, не использовавшиеся дольше интервала очистки
func (r *LockRegistry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.sweepInterval)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.entries {
		if entry.refs == 0 && entry.lastUsed.Before(cutoff) {
			delete(r.entries, key)
			removed++
		}
	}
	metrics.SetLockRegistryEntries(len(r.entries))
	return removed
}

// Len возвращает текущее число записей
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run периодически чистит реестр до отмены контекста
func (r *LockRegistry) Run(ctx context.Context) {
	if r.sweepInterval <= 0 {
		return
	}
	ticker := r.clock.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	log.Printf("[LockRegistry] Sweeper started (interval %s)", r.sweepInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[LockRegistry] Sweeper stopped")
			return
		case <-ticker.Chan():
			if removed := r.Sweep(); removed > 0 {
				log.Printf("[LockRegistry] Swept %d idle entries", removed)
			}
		}
	}
}
