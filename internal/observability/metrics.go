package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research assistant service.
// Metrics are organized by subsystem: workflows, stages, sources, submissions,
// and LLM operations. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// WorkflowsStarted counts the total number of research workflows initiated.
	WorkflowsStarted prometheus.Counter

	// WorkflowsCompleted counts the total number of workflows that finished successfully.
	WorkflowsCompleted prometheus.Counter

	// WorkflowsFailed counts the total number of workflows that ended in failure.
	WorkflowsFailed prometheus.Counter

	// WorkflowsCancelled counts the total number of workflows cancelled by the caller.
	WorkflowsCancelled prometheus.Counter

	// WorkflowDuration observes the end-to-end duration of workflows in seconds.
	WorkflowDuration prometheus.Histogram

	// StageDuration observes per-stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// StageRetries counts retry attempts, labeled by stage.
	StageRetries *prometheus.CounterVec

	// StageFailures counts stages that exhausted their retry budget, labeled by stage and category.
	StageFailures *prometheus.CounterVec

	// PapersRetrieved observes the number of papers returned per workflow search.
	PapersRetrieved prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to literature source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to literature source APIs.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to literature source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SubmissionsCreated counts paper submissions received.
	SubmissionsCreated prometheus.Counter

	// SubmissionTransitions counts submission status transitions, labeled by target status.
	SubmissionTransitions *prometheus.CounterVec

	// SubmissionTransitionsRejected counts transitions refused by the state machine.
	SubmissionTransitionsRejected prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method, route, and status.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Workflows
		WorkflowsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_started_total",
			Help:      "Total number of research workflows started",
		}),
		WorkflowsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_completed_total",
			Help:      "Total number of research workflows completed successfully",
		}),
		WorkflowsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_failed_total",
			Help:      "Total number of research workflows that failed",
		}),
		WorkflowsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_cancelled_total",
			Help:      "Total number of research workflows cancelled",
		}),
		WorkflowDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of research workflows in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Stages
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds by stage",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Total number of stage retry attempts by stage",
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total number of stages that failed after retries by stage and error category",
		}, []string{"stage", "category"}),
		PapersRetrieved: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_retrieved_per_workflow",
			Help:      "Number of papers retrieved per workflow",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to literature sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to literature sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to literature sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),

		// Submissions
		SubmissionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_created_total",
			Help:      "Total number of paper submissions created",
		}),
		SubmissionTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_transitions_total",
			Help:      "Total number of submission status transitions by target status",
		}, []string{"status"}),
		SubmissionTransitionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_transitions_rejected_total",
			Help:      "Total number of submission status transitions refused by the state machine",
		}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used by LLM operations",
		}, []string{"operation", "model", "token_type"}),

		// HTTP
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
	}
}

// RecordWorkflowStarted records that a workflow has started.
func (m *Metrics) RecordWorkflowStarted() {
	m.WorkflowsStarted.Inc()
}

// RecordWorkflowCompleted records that a workflow has completed.
func (m *Metrics) RecordWorkflowCompleted(durationSeconds float64) {
	m.WorkflowsCompleted.Inc()
	m.WorkflowDuration.Observe(durationSeconds)
}

// RecordWorkflowFailed records that a workflow has failed.
func (m *Metrics) RecordWorkflowFailed(durationSeconds float64) {
	m.WorkflowsFailed.Inc()
	m.WorkflowDuration.Observe(durationSeconds)
}

// RecordWorkflowCancelled records that a workflow has been cancelled.
func (m *Metrics) RecordWorkflowCancelled() {
	m.WorkflowsCancelled.Inc()
}

// RecordStageCompleted records a finished stage execution.
func (m *Metrics) RecordStageCompleted(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordStageRetry records one retry attempt for a stage.
func (m *Metrics) RecordStageRetry(stage string) {
	m.StageRetries.WithLabelValues(stage).Inc()
}

// RecordStageFailed records a stage that failed after exhausting retries.
func (m *Metrics) RecordStageFailed(stage, category string) {
	m.StageFailures.WithLabelValues(stage, category).Inc()
}

// RecordPapersRetrieved records the paper count of a completed search stage.
func (m *Metrics) RecordPapersRetrieved(count int) {
	m.PapersRetrieved.Observe(float64(count))
}

// RecordSourceRequest records a request to a literature source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a literature source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSubmissionCreated records a new paper submission.
func (m *Metrics) RecordSubmissionCreated() {
	m.SubmissionsCreated.Inc()
}

// RecordSubmissionTransition records a submission status transition.
func (m *Metrics) RecordSubmissionTransition(status string) {
	m.SubmissionTransitions.WithLabelValues(status).Inc()
}

// RecordSubmissionTransitionRejected records a transition refused by the state machine.
func (m *Metrics) RecordSubmissionTransitionRejected() {
	m.SubmissionTransitionsRejected.Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(durationSeconds)
}
