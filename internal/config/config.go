package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// #region config

// Config holds the global auditor configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Analyzer ServiceConfig  `yaml:"analyzer"`
	Search   SearchConfig   `yaml:"search"`
	Model    ModelConfig    `yaml:"model"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Server   ServerConfig   `yaml:"server"`
}

// StorageConfig locates the durable media store.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// DatabaseConfig locates the run database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServiceConfig is the shared shape for external HTTP collaborators.
type ServiceConfig struct {
	BaseURL     string `yaml:"base_url"`
	Timeout     string `yaml:"timeout"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// SearchConfig configures the knowledge-store client. TopK is an operator
// decision with no default.
type SearchConfig struct {
	ServiceConfig `yaml:",inline"`
	TopK          *int `yaml:"top_k"`
}

// ModelConfig configures the language-model client.
type ModelConfig struct {
	ServiceConfig `yaml:",inline"`
	Name          string `yaml:"name"`
}

// IngestConfig tunes the ingestion stage. OCRConfidenceThreshold is an
// operator decision with no default.
type IngestConfig struct {
	OCRConfidenceThreshold *float64 `yaml:"ocr_confidence_threshold"`
	DedupeWindow           string   `yaml:"dedupe_window"`
}

// ServerConfig configures the HTTP API daemon.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	LockFile string `yaml:"lock_file"`
}

// #endregion config

// #region load

// Load reads, env-overrides, and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Config{}
	cfg.Storage.Root = "data"
	cfg.Database.Path = "brandguard.db"
	cfg.Server.Addr = ":8080"
	cfg.Server.LockFile = "brandguard.lock"
	cfg.Ingest.DedupeWindow = "2s"

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BRANDGUARD_ANALYZER_URL"); v != "" {
		cfg.Analyzer.BaseURL = v
	}
	if v := os.Getenv("BRANDGUARD_SEARCH_URL"); v != "" {
		cfg.Search.BaseURL = v
	}
	if v := os.Getenv("BRANDGUARD_MODEL_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("BRANDGUARD_MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("BRANDGUARD_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BRANDGUARD_STORAGE_ROOT"); v != "" {
		cfg.Storage.Root = v
	}
}

// #endregion load

// #region validate

// Validate rejects incomplete configuration. The OCR confidence threshold
// and retrieval top-K are operator decisions and required outright; there
// is no safe built-in default for either.
func (c Config) Validate() error {
	if c.Analyzer.BaseURL == "" {
		return fmt.Errorf("config: analyzer.base_url is required")
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("config: search.base_url is required")
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("config: model.base_url is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("config: model.name is required")
	}
	if c.Search.TopK == nil {
		return fmt.Errorf("config: search.top_k is required")
	}
	if *c.Search.TopK < 1 {
		return fmt.Errorf("config: search.top_k must be >= 1, got %d", *c.Search.TopK)
	}
	if c.Ingest.OCRConfidenceThreshold == nil {
		return fmt.Errorf("config: ingest.ocr_confidence_threshold is required")
	}
	if t := *c.Ingest.OCRConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("config: ingest.ocr_confidence_threshold must be in [0,1], got %f", t)
	}
	if _, err := time.ParseDuration(c.Ingest.DedupeWindow); err != nil {
		return fmt.Errorf("config: ingest.dedupe_window: %w", err)
	}
	for name, svc := range map[string]ServiceConfig{
		"analyzer": c.Analyzer,
		"search":   c.Search.ServiceConfig,
		"model":    c.Model.ServiceConfig,
	} {
		if svc.Timeout != "" {
			if _, err := time.ParseDuration(svc.Timeout); err != nil {
				return fmt.Errorf("config: %s.timeout: %w", name, err)
			}
		}
	}
	return nil
}

// #endregion validate

// #region accessors

// DedupeWindowDuration returns the parsed dedupe window.
func (c IngestConfig) DedupeWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.DedupeWindow)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// TimeoutOr returns the parsed timeout or fallback when unset.
func (s ServiceConfig) TimeoutOr(fallback time.Duration) time.Duration {
	if s.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

// #endregion accessors
