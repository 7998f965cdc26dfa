// Package config loads runtime configuration from defaults, the
// environment, and an optional TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vjranagit/memtrend/pkg/archive"
)

// Duration wraps time.Duration so TOML values like "30s" decode
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the application configuration
type Config struct {
	Run     RunConfig     `toml:"run"`
	Archive ArchiveConfig `toml:"archive"`
	Server  ServerConfig  `toml:"server"`
}

// RunConfig holds measurement run configuration
type RunConfig struct {
	Iterations int    `toml:"iterations"`
	Interval   int    `toml:"interval"`
	OutputDir  string `toml:"output_dir"`
}

// ArchiveConfig holds run archive configuration
type ArchiveConfig struct {
	Path             string   `toml:"path"`
	CompressionLevel int      `toml:"compression_level"`
	CacheSize        int      `toml:"cache_size"`
	CacheTTL         Duration `toml:"cache_ttl"`
}

// ServerConfig holds report server configuration
type ServerConfig struct {
	ListenAddr string   `toml:"listen_addr"`
	Timeout    Duration `toml:"timeout"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Iterations: getEnvInt("MEMTREND_ITERATIONS", 1000),
			Interval:   getEnvInt("MEMTREND_INTERVAL", 100),
			OutputDir:  getEnv("MEMTREND_OUTPUT_DIR", "."),
		},
		Archive: ArchiveConfig{
			Path:             getEnv("MEMTREND_ARCHIVE_PATH", "./data"),
			CompressionLevel: getEnvInt("MEMTREND_COMPRESSION_LEVEL", 3),
			CacheSize:        getEnvInt("MEMTREND_CACHE_SIZE", 128),
			CacheTTL:         Duration(getEnvDuration("MEMTREND_CACHE_TTL", 5*time.Minute)),
		},
		Server: ServerConfig{
			ListenAddr: getEnv("MEMTREND_LISTEN_ADDR", ":9090"),
			Timeout:    Duration(getEnvDuration("MEMTREND_TIMEOUT", 30*time.Second)),
		},
	}
}

// LoadFile overlays settings from a TOML file onto cfg
func LoadFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	return nil
}

// ToArchiveConfig converts to archive.Config
func (c *Config) ToArchiveConfig() *archive.Config {
	return &archive.Config{
		Path:             c.Archive.Path,
		CompressionLevel: c.Archive.CompressionLevel,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Run.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1")
	}

	if c.Run.Interval < 1 {
		return fmt.Errorf("sample interval must be at least 1")
	}

	if c.Archive.Path == "" {
		return fmt.Errorf("archive path is required")
	}

	if c.Archive.CompressionLevel < 1 || c.Archive.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Archive.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1")
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
