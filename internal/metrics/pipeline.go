package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	JobsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "jobs_started_total",
			Help:      "Total number of background jobs started",
		},
		[]string{"kind"},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "jobs_completed_total",
			Help:      "Total number of background jobs that reached a terminal event",
		},
		[]string{"kind", "status"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "events_published_total",
			Help:      "Total number of events published to job channels",
		},
		[]string{"kind"},
	)

	FragmentsIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "fragments_indexed_total",
			Help:      "Total number of fragments added to the retrieval index",
		},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM streaming requests",
		},
		[]string{"model", "status"},
	)

	LLMTokensStreamedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstream",
			Name:      "llm_tokens_streamed_total",
			Help:      "Total number of token chunks received from the LLM stream",
		},
		[]string{"model"},
	)
)

// RegisterPipelineMetrics registers pipeline metrics with the default
// registry. Called explicitly from main (no init()).
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		JobsStartedTotal,
		JobsCompletedTotal,
		EventsPublishedTotal,
		FragmentsIndexedTotal,
		LLMRequestsTotal,
		LLMTokensStreamedTotal,
	)
}
