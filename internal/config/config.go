// Package config provides hierarchical configuration loading for TaskGate.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the TaskGate service.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Data      Data      `yaml:"data"`
	Router    Router    `yaml:"router"`
	Embedding Embedding `yaml:"embedding"`
	Breaker   Breaker   `yaml:"breaker"`
	Approvals Approvals `yaml:"approvals"`
	Audit     Audit     `yaml:"audit"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Cache     Cache     `yaml:"cache"`
	MCP       MCP       `yaml:"mcp"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Data locates the static policy tables and the curated prompt datasets.
type Data struct {
	Dir          string `yaml:"dir"`           // base directory for CSV datasets and assets
	PolicyFile   string `yaml:"policy_file"`   // optional YAML tables; empty uses built-in presets
	LabelsCSV    string `yaml:"labels_csv"`    // curated labeled prompts (prompt,task)
	VerifiedCSV  string `yaml:"verified_csv"`  // routing successes
	FailureCSV   string `yaml:"failure_csv"`   // routing failures
	EmbeddingsFN string `yaml:"embeddings_fn"` // semantic matcher asset
}

// Router holds prompt routing configuration.
type Router struct {
	Threshold     float64 `yaml:"threshold"`      // minimum confidence to accept a match (default: 0.55)
	Matcher       string  `yaml:"matcher"`        // "semantic" | "lexical" (default: "semantic")
	Preload       bool    `yaml:"preload"`        // build the matcher in the background at startup
	RecordWorkers int     `yaml:"record_workers"` // max concurrent outcome recordings (default: 4)
}

// Embedding holds the embedding model configuration for the semantic matcher.
type Embedding struct {
	OllamaURL  string        `yaml:"ollama_url"` // empty disables the real model
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Breaker holds circuit breaker configuration for the embedding model.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Approvals holds approval workflow persistence configuration.
type Approvals struct {
	Backend  string `yaml:"backend"`   // "file" | "postgres"
	File     string `yaml:"file"`      // full-snapshot JSON
	AuditLog string `yaml:"audit_log"` // lifecycle events, JSONL
}

// Audit holds the tool-dispatch audit trail configuration.
type Audit struct {
	Log      string `yaml:"log"`      // JSONL file
	Postgres bool   `yaml:"postgres"` // also write audit rows to PostgreSQL
}

// Postgres holds PostgreSQL connection configuration.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables publishing.
type NATS struct {
	URL     string `yaml:"url"`
	CacheKV string `yaml:"cache_kv"` // KV bucket used as L2 route cache; empty disables
}

// Cache holds route-match cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	TTL         time.Duration `yaml:"ttl"`
}

// MCP holds the Model Context Protocol endpoint configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty keeps the no-op providers
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "taskgate",
		},
		Data: Data{
			Dir:          "data",
			LabelsCSV:    "prompt_labels.csv",
			VerifiedCSV:  "verified_prompts.csv",
			FailureCSV:   "failure_prompts.csv",
			EmbeddingsFN: "reference_embeddings.json",
		},
		Router: Router{
			Threshold:     0.55,
			Matcher:       "semantic",
			Preload:       true,
			RecordWorkers: 4,
		},
		Embedding: Embedding{
			Model:      "all-minilm",
			Dimensions: 384,
			Timeout:    5 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 3,
			Timeout:     30 * time.Second,
		},
		Approvals: Approvals{
			Backend:  "file",
			File:     "data/approvals.json",
			AuditLog: "data/approvals_audit.log",
		},
		Audit: Audit{
			Log: "data/audit.log",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Cache: Cache{
			L1MaxSizeMB: 16,
			TTL:         10 * time.Minute,
		},
	}
}
