package config

import (
	"time"

	redisclient "github.com/vietddude/mediafetch/internal/infra/redis"
	"github.com/vietddude/mediafetch/internal/infra/storage/sqlstore"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
)

// Provider types
const (
	ProviderHTTP    = "http"
	ProviderCommand = "command"
	ProviderGRPC    = "grpc"
)

// Cache and history backends
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logging   LoggingConfig       `yaml:"logging"`
	Retry     orchestrator.Policy `yaml:"retry"`
	Batch     batch.Config        `yaml:"batch"`
	Verifier  VerifierConfig      `yaml:"verifier"`
	Cache     CacheConfig         `yaml:"cache"`
	History   HistoryConfig       `yaml:"history"`
	Redis     redisclient.Config  `yaml:"redis"`
	Database  sqlstore.Config     `yaml:"database"`
	Providers []ProviderConfig    `yaml:"providers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `yaml:"port"`
	MaxBatch    int           `yaml:"max_batch"`    // upper bound on urls per batch request
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// VerifierConfig selects the verification stage.
type VerifierConfig struct {
	Mode      string        `yaml:"mode"` // none, null, rules, independent
	Threshold float64       `yaml:"threshold"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // none, memory, redis
	TTL     time.Duration `yaml:"ttl"`
	Size    int           `yaml:"size"` // memory backend only
}

// HistoryConfig holds history store settings.
type HistoryConfig struct {
	Backend   string        `yaml:"backend"` // none, memory, redis, sql
	Capacity  int           `yaml:"capacity"`
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// ProviderConfig holds settings for one retrieval tier. Order in the list is priority order.
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	Type       string        `yaml:"type"`    // http, command, grpc
	URL        string        `yaml:"url"`     // http endpoint or grpc target
	Method     string        `yaml:"method"`  // grpc full method name
	Command    string        `yaml:"command"` // command binary
	Args       []string      `yaml:"args"`
	Timeout    time.Duration `yaml:"timeout"`
	DailyQuota int           `yaml:"daily_quota"` // 0 = unlimited
	Platforms  []string      `yaml:"platforms"`   // empty = every known platform
	Disabled   bool          `yaml:"disabled"`
}
