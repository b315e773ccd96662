// Package metrics exposes Prometheus instrumentation for rooms, sessions,
// ticks, and bomb detonations (SPEC_FULL.md ambient stack). Grounded on
// the promauto gauge/counter/histogram idiom from
// iamvalenciia-kick-game-stream's internal/api/observability.go.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bombarena_active_rooms",
		Help: "Current number of live rooms.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bombarena_active_sessions",
		Help: "Current number of connected player sessions.",
	})

	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bombarena_ticks_total",
		Help: "Total simulation ticks processed across all rooms.",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bombarena_tick_duration_seconds",
		Help:    "Wall-clock time spent inside one room tick.",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
	})

	BombsDetonatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bombarena_bombs_detonated_total",
		Help: "Total bombs that reached detonation (including chain-reaction triggers).",
	})

	EnemiesKilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bombarena_enemies_killed_total",
		Help: "Total enemies killed by explosion damage (PVE).",
	})

	MatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bombarena_match_errors_total",
		Help: "Matchmaking failures by reason.",
	}, []string{"reason"}) // bounded: not_found, locked, not_open, server_full

	WSConnectionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bombarena_ws_connections_rejected_total",
		Help: "WebSocket upgrades that failed, plus room joins refused because the room was full or already started.",
	})
)

// RecordTick observes one tick's wall-clock duration and increments the
// running tick counter.
func RecordTick(d time.Duration) {
	TicksTotal.Inc()
	TickDuration.Observe(d.Seconds())
}

// RecordBombsDetonated adds n newly detonated bombs to the running total.
func RecordBombsDetonated(n int) {
	if n <= 0 {
		return
	}
	BombsDetonatedTotal.Add(float64(n))
}

// RecordEnemiesKilled adds n newly killed enemies to the running total.
func RecordEnemiesKilled(n int) {
	if n <= 0 {
		return
	}
	EnemiesKilledTotal.Add(float64(n))
}

// RecordMatchError increments the matchmaking-failure counter for reason.
func RecordMatchError(reason string) {
	MatchErrorsTotal.WithLabelValues(reason).Inc()
}
