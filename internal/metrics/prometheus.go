package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MigrationsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptstore_migrations_applied_total",
			Help: "Total number of migration units applied",
		},
	)

	MigrationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptstore_migration_failures_total",
			Help: "Total number of failed migration units",
		},
		[]string{"version"},
	)

	AggregateRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptstore_aggregate_recomputes_total",
			Help: "Derived-field recomputations by triggering event",
		},
		[]string{"event"},
	)

	WriteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptstore_write_errors_total",
			Help: "Storage write errors by operation",
		},
		[]string{"operation"},
	)

	ValidatorQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptstore_validator_query_duration_seconds",
			Help:    "Validator battery query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"check"},
	)
)

func Register() {
	prometheus.MustRegister(
		MigrationsApplied,
		MigrationFailures,
		AggregateRecomputes,
		WriteErrors,
		ValidatorQueryDuration,
	)
}
