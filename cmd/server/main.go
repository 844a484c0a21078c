// Package main provides the entry point for the research assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scholarpipe/research-assistant/internal/config"
	"github.com/scholarpipe/research-assistant/internal/database"
	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/events"
	"github.com/scholarpipe/research-assistant/internal/llm"
	"github.com/scholarpipe/research-assistant/internal/observability"
	"github.com/scholarpipe/research-assistant/internal/papersources"
	"github.com/scholarpipe/research-assistant/internal/papersources/arxiv"
	"github.com/scholarpipe/research-assistant/internal/papersources/pubmed"
	"github.com/scholarpipe/research-assistant/internal/repository"
	"github.com/scholarpipe/research-assistant/internal/research"
	httpserver "github.com/scholarpipe/research-assistant/internal/server/http"
	"github.com/scholarpipe/research-assistant/internal/submission"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// eventPublisher is the union of the publisher surfaces the engine and the
// submission tracker need, plus Close for shutdown.
type eventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-assistant server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Set up Prometheus metrics when enabled.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("research_assistant")
	}

	// Create repositories.
	submissionRepo := repository.NewPgSubmissionRepository(db)

	// Register paper sources.
	registry := papersources.NewRegistry()
	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    cfg.PaperSources.PubMed.BaseURL,
		APIKey:     cfg.PaperSources.PubMed.APIKey,
		Timeout:    cfg.PaperSources.PubMed.Timeout,
		RateLimit:  cfg.PaperSources.PubMed.RateLimit,
		MaxResults: cfg.PaperSources.PubMed.MaxResults,
		Enabled:    cfg.PaperSources.PubMed.Enabled,
		Metrics:    metrics,
	}))
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.PaperSources.ArXiv.BaseURL,
		Timeout:    cfg.PaperSources.ArXiv.Timeout,
		RateLimit:  cfg.PaperSources.ArXiv.RateLimit,
		MaxResults: cfg.PaperSources.ArXiv.MaxResults,
		Enabled:    cfg.PaperSources.ArXiv.Enabled,
		Metrics:    metrics,
	}))

	// Create the completion provider.
	provider, err := llm.NewCompletionProvider(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create completion provider: %w", err)
	}
	logger.Info().Str("provider", cfg.LLM.Provider).Msg("completion provider configured")

	// Create the Kafka event publisher when enabled.
	var publisher eventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka event publisher configured")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	// Assemble the research workflow engine.
	searcher := research.NewRegistrySearcher(registry, logger)
	executor := research.NewStageExecutor(logger, metrics)
	engine := research.NewEngine(
		research.EngineConfig{
			MaxPapers: cfg.Workflow.MaxPapers,
			Stages:    stageConfigs(cfg.Workflow),
		},
		research.NewProgressStore(),
		searcher,
		provider,
		executor,
		publisher,
		logger,
		metrics,
	)

	assistant := research.NewAssistant(provider, logger, metrics)
	tracker := submission.NewTracker(submissionRepo, publisher, logger, metrics)

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    35 * time.Minute, // Long timeout for SSE streaming.
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		engine,
		assistant,
		tracker,
		registry,
		db,
		logger,
		metrics,
	)

	// Channel to collect server errors.
	errCh := make(chan error, 1)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Msg("research-assistant is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down research-assistant")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests first, then drain in-flight workflows.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("workflow engine did not drain before the deadline")
	}

	logger.Info().Msg("research-assistant shutdown complete")
	return nil
}

// stageConfigs maps the workflow configuration onto per-stage retry
// settings, starting from the engine defaults.
func stageConfigs(cfg config.WorkflowConfig) map[string]research.StageConfig {
	stages := research.DefaultStageConfigs()
	for name, stage := range stages {
		if cfg.StageMaxRetries > 0 {
			stage.MaxRetries = cfg.StageMaxRetries
		}
		if cfg.InitialBackoff > 0 {
			stage.InitialBackoff = cfg.InitialBackoff
		}
		if cfg.MaxBackoff > 0 {
			stage.MaxBackoff = cfg.MaxBackoff
		}
		switch name {
		case research.StageSearch:
			if cfg.SearchTimeout > 0 {
				stage.AttemptTimeout = cfg.SearchTimeout
			}
		default:
			if cfg.CompletionTimeout > 0 {
				stage.AttemptTimeout = cfg.CompletionTimeout
			}
		}
		stages[name] = stage
	}
	return stages
}
