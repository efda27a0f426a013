package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoecho",
		Subsystem: "history",
		Name:      "scans_recorded_total",
		Help:      "Scans appended to local history.",
	})
	achievementsUnlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoecho",
		Subsystem: "achievements",
		Name:      "unlocked_total",
		Help:      "Achievements unlocked, by achievement id.",
	}, []string{"achievement"})
	reconcileRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoecho",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Stats refreshes, by outcome (fresh, throttled, cached).",
	}, []string{"outcome"})
	statsPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoecho",
		Subsystem: "reconcile",
		Name:      "server_pushes_total",
		Help:      "Reconciled stats pushed to the server, by result.",
	}, []string{"result"})
	pendingPushes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoecho",
		Subsystem: "reconcile",
		Name:      "pending_pushes",
		Help:      "Failed pushes waiting for the retry job.",
	})
	lastReconciledGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoecho",
		Subsystem: "reconcile",
		Name:      "last_reconciled_timestamp_seconds",
		Help:      "Unix timestamp of the most recent full reconciliation.",
	})
	migrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoecho",
		Subsystem: "migration",
		Name:      "runs_total",
		Help:      "Anonymous-to-user migrations, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		scansRecorded,
		achievementsUnlocked,
		reconcileRuns,
		statsPushes,
		pendingPushes,
		lastReconciledGauge,
		migrations,
	)
}

func RecordScan() {
	scansRecorded.Inc()
}

func RecordAchievementUnlocked(id string) {
	achievementsUnlocked.WithLabelValues(id).Inc()
}

// RecordReconcile counts a refresh and, for fresh runs, moves the watermark.
func RecordReconcile(outcome string, ts time.Time) {
	reconcileRuns.WithLabelValues(outcome).Inc()
	if outcome == "fresh" && !ts.IsZero() {
		lastReconciledGauge.Set(float64(ts.Unix()))
	}
}

func RecordPush(ok bool) {
	if ok {
		statsPushes.WithLabelValues("ok").Inc()
		return
	}
	statsPushes.WithLabelValues("failed").Inc()
}

func SetPendingPushes(n int) {
	pendingPushes.Set(float64(n))
}

func RecordMigration(ok bool) {
	if ok {
		migrations.WithLabelValues("ok").Inc()
		return
	}
	migrations.WithLabelValues("failed").Inc()
}
