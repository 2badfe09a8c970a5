package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/storage/sqlstore"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
	"github.com/vietddude/mediafetch/internal/retrieval/verifier"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables and applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := Default()

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Port: 8080, MaxBatch: 50, ReadTimeout: 30 * time.Second},
		Logging: LoggingConfig{Level: "info"},
		Retry:   orchestrator.DefaultPolicy,
		Batch:   batch.DefaultConfig,
		Verifier: VerifierConfig{
			Mode:      verifier.ModeRules,
			Threshold: verifier.DefaultThreshold,
			Timeout:   15 * time.Second,
		},
		Cache:    CacheConfig{Backend: BackendMemory, TTL: 10 * time.Minute},
		History:  HistoryConfig{Backend: BackendMemory, Capacity: 500},
		Database: sqlstore.Config{Driver: sqlstore.DriverPostgres},
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxBatch <= 0 {
		c.Server.MaxBatch = 50
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Retry = c.Retry.Normalize()
	if c.Batch.MaxConcurrency < 1 {
		c.Batch.MaxConcurrency = batch.DefaultConfig.MaxConcurrency
	}
	if c.Verifier.Timeout <= 0 {
		c.Verifier.Timeout = 15 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.History.Backend == "" {
		c.History.Backend = BackendMemory
	}
	if c.Database.Driver == "" {
		c.Database.Driver = sqlstore.DriverPostgres
	}
	for i := range c.Providers {
		if c.Providers[i].Type == ProviderGRPC && c.Providers[i].Method == "" {
			c.Providers[i].Method = "/extractor.v1.Extractor/Extract"
		}
		if c.Providers[i].Type == ProviderCommand && c.Providers[i].Command == "" {
			c.Providers[i].Command = "python3"
		}
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Verifier.Mode {
	case "", verifier.ModeNone, verifier.ModeNull, verifier.ModeRules, verifier.ModeIndependent:
	default:
		errs = append(errs, fmt.Errorf("unknown verifier mode %q", c.Verifier.Mode))
	}
	if c.Verifier.Threshold < 0 || c.Verifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("verifier threshold %v outside [0,1]", c.Verifier.Threshold))
	}

	switch c.Cache.Backend {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis cache requires redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	switch c.History.Backend {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis history requires redis.url"))
		}
	case BackendSQL:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("sql history requires database.url"))
		}
		if c.Database.Driver != sqlstore.DriverPostgres && c.Database.Driver != sqlstore.DriverSQLite {
			errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true

		switch p.Type {
		case ProviderHTTP, ProviderGRPC:
			if p.URL == "" {
				errs = append(errs, fmt.Errorf("provider %s: url is required", p.Name))
			}
		case ProviderCommand:
		default:
			errs = append(errs, fmt.Errorf("provider %s: unknown type %q", p.Name, p.Type))
		}
		if p.DailyQuota < 0 {
			errs = append(errs, fmt.Errorf("provider %s: daily_quota must not be negative", p.Name))
		}

		for _, platform := range p.Platforms {
			if !domain.Category(platform).IsKnown() {
				errs = append(errs, fmt.Errorf("provider %s: unknown platform %q", p.Name, platform))
			}
		}
	}

	return errors.Join(errs...)
}

// EnabledProviders returns the providers not marked disabled, in priority order.
func (c *AppConfig) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if !p.Disabled {
			out = append(out, p)
		}
	}
	return out
}

// PlatformCategories converts the configured platform names.
func (p ProviderConfig) PlatformCategories() []domain.Category {
	out := make([]domain.Category, 0, len(p.Platforms))
	for _, name := range p.Platforms {
		out = append(out, domain.Category(name))
	}
	return out
}
