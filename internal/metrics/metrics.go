package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	ResearchSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_research_sessions_started_total",
			Help: "Total number of research sessions started",
		},
	)

	ResearchSessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_research_sessions_completed_total",
			Help: "Total number of research sessions completed",
		},
		[]string{"status"},
	)

	PersonaBatchesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_persona_batches_generated_total",
			Help: "Total number of persona batches generated (including regenerations)",
		},
	)

	InterviewBranches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_interview_branches_total",
			Help: "Total number of interview branches by outcome",
		},
		[]string{"status"},
	)

	InterviewDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roundtable_interview_duration_seconds",
			Help:    "Interview sub-workflow duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Gateway metrics
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_gateway_calls_total",
			Help: "Total number of LLM gateway calls",
		},
		[]string{"kind", "status"},
	)

	GatewayTokensUsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_gateway_tokens_used_total",
			Help: "Total tokens consumed across all gateway calls",
		},
	)

	SessionTokensUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roundtable_session_tokens_used",
			Help:    "Tokens used per research session",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)

	// Retrieval metrics
	RetrievalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_retrieval_calls_total",
			Help: "Total number of retrieval tool calls",
		},
		[]string{"tool", "status"},
	)

	// Session store metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_sessions_created_total",
			Help: "Total number of session records created",
		},
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_session_cache_hits_total",
			Help: "Session local cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roundtable_session_cache_misses_total",
			Help: "Session local cache misses",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roundtable_session_cache_size",
			Help: "Number of sessions in the local cache",
		},
	)

	// Archive metrics
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roundtable_archive_writes_total",
			Help: "Research archive write attempts",
		},
		[]string{"status"},
	)
)
