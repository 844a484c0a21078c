// Package observability provides logging, metrics, and context propagation
// support for the research assistant service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for workflows, stages, sources, and submissions
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("workflow_id", id).Msg("workflow started")
//
// Add workflow context to a logger:
//
//	logger = observability.WithWorkflowContext(logger, workflowID, topic)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("research_assistant")
//
// Record metrics:
//
//	metrics.RecordWorkflowStarted()
//	metrics.RecordStageCompleted("search", 1.2)
//	metrics.RecordPapersRetrieved(3)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithWorkflowID(ctx, workflowID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	workflowID := observability.WorkflowIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - workflow_id: Research workflow identifier
//   - submission_id: Paper submission identifier
//   - topic: User's research topic
//   - stage: Pipeline stage (search, synthesize, extend)
//   - source: Literature source (pubmed, arxiv)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
