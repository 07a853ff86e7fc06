// Package config holds the tunables for a kuzugraph database instance:
// page/chunk geometry, WAL flush behavior, checkpoint concurrency, and the
// bounded commit-history kept by the transaction coordinator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration for a database instance.
type Config struct {
	Storage    StorageConfig    `json:"storage"`
	WAL        WALConfig        `json:"wal"`
	Checkpoint CheckpointConfig `json:"checkpoint"`
	MVCC       MVCCConfig       `json:"mvcc"`
}

// StorageConfig controls on-disk page and chunk geometry.
type StorageConfig struct {
	// Directory is the base directory holding the WAL, statistics files and
	// data files (spec.md §6 Environment).
	Directory string `json:"directory"`
	// PageSize is the fixed size in bytes of every page, including WAL
	// header pages. Must be a power of two.
	PageSize uint64 `json:"page_size"`
	// ChunkSize is the number of node offsets that share list-header and
	// allocation metadata. Must be a power of two.
	ChunkSize uint64 `json:"chunk_size"`
}

// WALConfig controls write-ahead log flush behavior.
type WALConfig struct {
	// FsyncOnFlush is loaded and kept in the config but not read by the WAL:
	// wal.FlushAllPages always fsyncs the WAL file, whatever its value.
	FsyncOnFlush bool `json:"fsync_on_flush"`
}

// CheckpointConfig controls the checkpoint's parallel page copy-back.
type CheckpointConfig struct {
	// WorkerPoolSize is the number of workers used to copy WAL shadow pages
	// back into their original files during checkpoint.
	WorkerPoolSize int `json:"worker_pool_size"`
}

// MVCCConfig bounds the transaction coordinator's in-memory commit history,
// reusing the shape of the teacher's MVCC config block.
type MVCCConfig struct {
	// GCInterval is loaded and kept in the config but not read by the
	// coordinator, which prunes the commit log after every transaction
	// outcome it records.
	GCInterval time.Duration `json:"gc_interval"`
	// GCAgeThreshold is the minimum age of a commit-log entry before it's
	// eligible for pruning.
	GCAgeThreshold time.Duration `json:"gc_age_threshold"`
	// MaxActiveTxns bounds the number of entries retained regardless of age.
	MaxActiveTxns int `json:"max_active_txns"`
}

const (
	defaultPageSize  = 4096
	defaultChunkSize = 512
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Directory: ".",
			PageSize:  defaultPageSize,
			ChunkSize: defaultChunkSize,
		},
		WAL: WALConfig{
			FsyncOnFlush: true,
		},
		Checkpoint: CheckpointConfig{
			WorkerPoolSize: 4,
		},
		MVCC: MVCCConfig{
			GCInterval:     5 * time.Minute,
			GCAgeThreshold: 1 * time.Hour,
			MaxActiveTxns:  10000,
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to defaults
// for unspecified fields. An empty path returns DefaultConfig().
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigOrDefault tries KUZUGRAPH_CONFIG, then a handful of conventional
// locations, and falls back to DefaultConfig() if none load cleanly.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("KUZUGRAPH_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}

	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/kuzugraph/config.json",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if cfg, err := LoadConfig(absPath); err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}

func validateConfig(cfg *Config) error {
	if cfg.Storage.PageSize == 0 || cfg.Storage.PageSize&(cfg.Storage.PageSize-1) != 0 {
		return fmt.Errorf("storage.page_size must be a power of two, got %d", cfg.Storage.PageSize)
	}
	if cfg.Storage.ChunkSize == 0 || cfg.Storage.ChunkSize&(cfg.Storage.ChunkSize-1) != 0 {
		return fmt.Errorf("storage.chunk_size must be a power of two, got %d", cfg.Storage.ChunkSize)
	}
	if cfg.Checkpoint.WorkerPoolSize < 1 {
		return fmt.Errorf("checkpoint.worker_pool_size must be greater than 0")
	}
	if cfg.MVCC.MaxActiveTxns < 1 {
		return fmt.Errorf("mvcc.max_active_txns must be greater than 0")
	}
	return nil
}

// WALDir returns the path of the WAL file within the storage directory.
func (c *Config) WALDir() string {
	return filepath.Join(c.Storage.Directory, "wal")
}

// NodesStatisticsPath returns the path of the nodes statistics file for the
// given DB file variant ("original" or "wal_shadow").
func (c *Config) NodesStatisticsPath(variant string) string {
	return filepath.Join(c.Storage.Directory, fmt.Sprintf("nodes.statistics.%s", variant))
}

// RelsStatisticsPath returns the path of the rels statistics file for the
// given DB file variant ("original" or "wal_shadow").
func (c *Config) RelsStatisticsPath(variant string) string {
	return filepath.Join(c.Storage.Directory, fmt.Sprintf("rels.statistics.%s", variant))
}
