package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Executor ExecutorConfig `yaml:"executor"`
	Storage  StorageConfig  `yaml:"storage"`
	Lipsync  LipsyncConfig  `yaml:"lipsync"`
}

// ServerConfig holds HTTP server settings for the serve command.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds run-history database settings. An empty URL keeps
// run history in memory only.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig holds the persistent result-cache location.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// ExecutorConfig holds workflow execution defaults. CLI flags override them.
type ExecutorConfig struct {
	MaxWorkers  int           `yaml:"max_workers"`
	NodeTimeout time.Duration `yaml:"node_timeout"` // 0 = no per-node timeout
}

// StorageConfig holds the HTTP object-storage endpoint used by the
// upload_storage capability. The access token comes from the environment
// (SYNCKIT_STORAGE_TOKEN).
type StorageConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
}

// LipsyncConfig holds the third-party lipsync batch API settings. The API
// key comes from the environment (SYNCKIT_LIPSYNC_API_KEY).
type LipsyncConfig struct {
	URL        string `yaml:"url"`
	MaxWorkers int    `yaml:"max_workers"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	cacheDir := ".synckit-cache"
	if base, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(base, "synckit")
	}
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Cache: CacheConfig{Dir: cacheDir},
		Executor: ExecutorConfig{
			MaxWorkers: 4,
		},
		Lipsync: LipsyncConfig{MaxWorkers: 5},
	}
}

// Load reads a YAML configuration file at path and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Executor.MaxWorkers <= 0 {
		cfg.Executor.MaxWorkers = 4
	}
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns sensible defaults.
// Any other error (e.g. permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}
