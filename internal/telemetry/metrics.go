package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка обслуживания. Экспортируются через /metrics демона.
var (
	// ScansTotal — количество измерений по узлам и режимам (quick/full).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autocal_scans_total",
		Help: "Number of measurement scans performed, by node and scan mode.",
	}, []string{"node", "mode"})

	// CalibrationsTotal — количество полных калибровок по исходу.
	CalibrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autocal_calibrations_total",
		Help: "Number of full calibrations, by node and outcome (success/failure).",
	}, []string{"node", "outcome"})

	// MaintainRunsTotal — количество запусков обслуживания по исходу.
	MaintainRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autocal_maintain_runs_total",
		Help: "Number of maintenance runs, by outcome (success/failure).",
	}, []string{"outcome"})

	// MaintainDuration — длительность запусков обслуживания.
	MaintainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "autocal_maintain_duration_seconds",
		Help:    "Duration of maintenance runs.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	// NodesRecalibrated — количество узлов, перекалиброванных за запуск.
	NodesRecalibrated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autocal_nodes_recalibrated_total",
		Help: "Total number of node recalibrations produced by maintenance runs.",
	})
)
