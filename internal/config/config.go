// Package config provides configuration management for the research
// assistant service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the research assistant service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains completion provider settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Kafka contains event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Workflow contains research workflow engine settings.
	Workflow WorkflowConfig `mapstructure:"workflow"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes caps the accepted size of paper PDF uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"min=1"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host" validate:"required"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name" validate:"required"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool (default: 25).
	MaxConns int32 `mapstructure:"max_conns" validate:"min=1"`
	// MinConns is the minimum number of connections to keep open (default: 5).
	MinConns int32 `mapstructure:"min_conns" validate:"min=0"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	// Provider is the completion provider (openai, anthropic).
	Provider string `mapstructure:"provider" validate:"oneof=openai anthropic"`
	// Timeout is the timeout for completion API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries inside the provider client.
	MaxRetries int `mapstructure:"max_retries" validate:"min=0"`
	// Temperature is the default temperature when a request does not set one.
	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI ProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig holds settings for a single completion provider.
type ProviderConfig struct {
	// APIKey is the provider API key, loaded exclusively from the
	// environment (RESEARCH_LLM_OPENAI_API_KEY, RESEARCH_LLM_ANTHROPIC_API_KEY).
	APIKey string `mapstructure:"-"`
	// Model is the model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether lifecycle events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic for workflow and submission events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size" validate:"min=1"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// WorkflowConfig holds research workflow engine settings.
type WorkflowConfig struct {
	// MaxPapers is the inclusive upper bound on papers per workflow.
	MaxPapers int `mapstructure:"max_papers" validate:"min=1,max=50"`
	// StageMaxRetries is the retry count per pipeline stage.
	StageMaxRetries int `mapstructure:"stage_max_retries" validate:"min=0"`
	// SearchTimeout is the per-attempt timeout for the search stage.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	// CompletionTimeout is the per-attempt timeout for the synthesize and
	// extend stages.
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// PubMed contains PubMed E-utilities settings.
	PubMed PaperSourceConfig `mapstructure:"pubmed"`
	// ArXiv contains arXiv Atom API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is searched.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key, loaded exclusively from the environment
	// (e.g. RESEARCH_PAPER_SOURCES_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"min=0"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results" validate:"min=1"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKey = os.Getenv("RESEARCH_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("RESEARCH_LLM_ANTHROPIC_API_KEY")

	cfg.PaperSources.PubMed.APIKey = os.Getenv("RESEARCH_PAPER_SOURCES_PUBMED_API_KEY")
	cfg.PaperSources.ArXiv.APIKey = os.Getenv("RESEARCH_PAPER_SOURCES_ARXIV_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "research")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "research_assistant")
	// Default to "require" for production security. Use RESEARCH_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.temperature", 0.7)
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.research_assistant")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Workflow defaults
	v.SetDefault("workflow.max_papers", 10)
	v.SetDefault("workflow.stage_max_retries", 2)
	v.SetDefault("workflow.search_timeout", "30s")
	v.SetDefault("workflow.completion_timeout", "60s")
	v.SetDefault("workflow.initial_backoff", "2s")
	v.SetDefault("workflow.max_backoff", "30s")

	// Paper sources defaults - PubMed
	v.SetDefault("paper_sources.pubmed.enabled", true)
	v.SetDefault("paper_sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("paper_sources.pubmed.timeout", "30s")
	v.SetDefault("paper_sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("paper_sources.pubmed.max_results", 10)

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 0.34) // arXiv asks for one request every 3 seconds
	v.SetDefault("paper_sources.arxiv.max_results", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid value for %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database max_conns (%d) must be >= min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	// The configured completion provider must have its key set. Keys come
	// only from the environment, never from config files.
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires RESEARCH_LLM_OPENAI_API_KEY to be set", c.LLM.Provider)
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires RESEARCH_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider)
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}
