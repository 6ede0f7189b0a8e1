package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskgate.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("TASKGATE_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// DataPath resolves a dataset file name against Data.Dir. Absolute names
// are returned unchanged.
func (c *Config) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TASKGATE_PORT")
	setString(&cfg.Server.CORSOrigin, "TASKGATE_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "TASKGATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKGATE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TASKGATE_LOG_ASYNC")

	// Data
	setString(&cfg.Data.Dir, "TASKGATE_DATA_DIR")
	setString(&cfg.Data.PolicyFile, "TASKGATE_POLICY_FILE")

	// Router
	setFloat64(&cfg.Router.Threshold, "TASKGATE_ROUTER_THRESHOLD")
	setString(&cfg.Router.Matcher, "TASKGATE_ROUTER_MATCHER")
	setBool(&cfg.Router.Preload, "TASKGATE_ROUTER_PRELOAD")
	setInt(&cfg.Router.RecordWorkers, "TASKGATE_ROUTER_RECORD_WORKERS")

	// Embedding
	setString(&cfg.Embedding.OllamaURL, "OLLAMA_URL")
	setString(&cfg.Embedding.Model, "TASKGATE_EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimensions, "TASKGATE_EMBEDDING_DIMENSIONS")
	setDuration(&cfg.Embedding.Timeout, "TASKGATE_EMBEDDING_TIMEOUT")
	setInt(&cfg.Breaker.MaxFailures, "TASKGATE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKGATE_BREAKER_TIMEOUT")

	// Approvals and audit
	setString(&cfg.Approvals.Backend, "TASKGATE_APPROVALS_BACKEND")
	setString(&cfg.Approvals.File, "TASKGATE_APPROVALS_FILE")
	setString(&cfg.Approvals.AuditLog, "TASKGATE_APPROVALS_AUDIT_LOG")
	setString(&cfg.Audit.Log, "TASKGATE_AUDIT_LOG")
	setBool(&cfg.Audit.Postgres, "TASKGATE_AUDIT_POSTGRES")

	// Infrastructure
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TASKGATE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TASKGATE_PG_MIN_CONNS")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.CacheKV, "TASKGATE_NATS_CACHE_KV")
	setInt64(&cfg.Cache.L1MaxSizeMB, "TASKGATE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "TASKGATE_CACHE_TTL")

	// MCP and telemetry
	setBool(&cfg.MCP.Enabled, "TASKGATE_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "TASKGATE_MCP_API_KEY")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Router.Threshold < 0 || cfg.Router.Threshold > 1 {
		return errors.New("router.threshold must be within [0, 1]")
	}
	switch cfg.Router.Matcher {
	case "semantic", "lexical":
	default:
		return fmt.Errorf("router.matcher must be semantic or lexical, got %q", cfg.Router.Matcher)
	}
	if cfg.Router.RecordWorkers < 1 {
		return errors.New("router.record_workers must be >= 1")
	}
	if cfg.Embedding.Dimensions < 1 {
		return errors.New("embedding.dimensions must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	switch cfg.Approvals.Backend {
	case "file":
		if cfg.Approvals.File == "" {
			return errors.New("approvals.file is required for the file backend")
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres approvals backend")
		}
	default:
		return fmt.Errorf("approvals.backend must be file or postgres, got %q", cfg.Approvals.Backend)
	}
	if cfg.Audit.Postgres && cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required when audit.postgres is enabled")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
