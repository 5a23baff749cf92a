package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GraphMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_graph_mutations_total",
		Help: "Total number of graph store mutations, labelled by operation.",
	}, []string{"op"})

	ConnectionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_connections_rejected_total",
		Help: "Total number of connection attempts rejected by validation, labelled by reason.",
	}, []string{"reason"})

	ReconcilePasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowcanvas_reconcile_passes_total",
		Help: "Total number of form-to-edges reconciliation passes.",
	})

	Compiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowcanvas_dsl_compiles_total",
		Help: "Total number of graph-to-DSL compilations.",
	})

	Decompiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowcanvas_dsl_decompiles_total",
		Help: "Total number of DSL-to-graph decompilations.",
	})

	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowcanvas_dsl_compile_duration_ms",
		Help:    "Graph-to-DSL compilation latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
	})

	AutosaveFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_autosave_flushes_total",
		Help: "Total number of autosave flushes, labelled by status.",
	}, []string{"status"})

	CatalogReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowcanvas_catalog_reloads_total",
		Help: "Total number of operator catalog hot reloads.",
	})
)
