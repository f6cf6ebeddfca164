package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_search_duration_seconds",
			Help:    "Aggregated search duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_search_total",
			Help: "Total aggregated searches processed",
		},
		[]string{"status"},
	)

	PagesFetched = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_search_pages_fetched",
			Help:    "Pages fetched per aggregation call",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_upstream_errors_total",
			Help: "Upstream search API failures by kind",
		},
		[]string{"kind"},
	)

	SearchesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_history_records_total",
			Help: "Search history entries recorded",
		},
	)

	LeadMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_lead_mutations_total",
			Help: "Lead store mutations by operation",
		},
		[]string{"op"},
	)

	LeadTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_lead_transitions_total",
			Help: "Lead pipeline state transitions by target state",
		},
		[]string{"state"},
	)

	LeadExports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_lead_exports_total",
			Help: "Lead exports by format",
		},
		[]string{"format"},
	)

	NoteWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_note_writes_total",
			Help: "Note writes by store",
		},
		[]string{"store"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_cache_hits_total",
			Help: "Read-fallback cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_cache_misses_total",
			Help: "Read-fallback cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(UpstreamErrors)
	prometheus.MustRegister(SearchesRecorded)
	prometheus.MustRegister(LeadMutations)
	prometheus.MustRegister(LeadTransitions)
	prometheus.MustRegister(LeadExports)
	prometheus.MustRegister(NoteWrites)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
