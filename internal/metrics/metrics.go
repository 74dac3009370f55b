// Package metrics содержит prometheus-метрики движка викторин.
// Коллекторы регистрируются в реестре по умолчанию и отдаются через /metrics.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	joinOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livequiz_join_outcomes_total",
			Help: "Join requests by outcome (created, resumed or rejection kind).",
		},
		[]string{"outcome"},
	)
	answerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livequiz_answer_outcomes_total",
			Help: "Answer submissions by outcome (correct, incorrect or rejection kind).",
		},
		[]string{"outcome"},
	)
	rateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livequiz_join_rate_limit_decisions_total",
			Help: "Join rate limiter decisions.",
		},
		[]string{"decision"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livequiz_metadata_cache_lookups_total",
			Help: "Quiz metadata cache lookups by result.",
		},
		[]string{"result"},
	)
	lockRegistryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livequiz_lock_registry_entries",
			Help: "Entries currently held in the answer submission lock registry.",
		},
	)
	storeStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livequiz_store_step_duration_seconds",
			Help:    "Latency of atomic join and answer steps against the authoritative store.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"step"},
	)
	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livequiz_ws_connections",
			Help: "Open websocket connections across all quiz rooms.",
		},
	)
)

// ObserveJoin учитывает результат подключения
func ObserveJoin(outcome string) {
	joinOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveAnswer учитывает результат отправки ответа
func ObserveAnswer(outcome string) {
	answerOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRateLimit учитывает решение ограничителя подключений
func ObserveRateLimit(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	rateLimitDecisions.WithLabelValues(decision).Inc()
}

// ObserveCacheLookup учитывает попадание или промах кеша метаданных
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// SetLockRegistryEntries публикует текущий размер реестра блокировок
func SetLockRegistryEntries(n int) {
	lockRegistryEntries.Set(float64(n))
}

// ObserveStoreStep фиксирует длительность атомарного шага хранилища
func ObserveStoreStep(step string, started time.Time) {
	storeStepDuration.WithLabelValues(step).Observe(time.Since(started).Seconds())
}

// WSConnected и WSDisconnected отслеживают число открытых websocket-соединений
func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// Handler возвращает gin-обработчик для /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
