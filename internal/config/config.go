package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

const (
	minCollectionIntervalSeconds = 1
	maxCollectionIntervalSeconds = 3600
	minInputPollMillis           = 5
	maxInputPollMillis           = 1000
	minInputStopTimeoutMillis    = 10
	maxInputStopTimeoutMillis    = 10000
	minRetentionDays             = 1
	maxRetentionDays             = 3650
	minCleanupIntervalHours      = 1
	maxCleanupIntervalHours      = 720
	minLogMaxSizeMB              = 1
	maxLogMaxSizeMB              = 1024
	minLogMaxBackups             = 0
	maxLogMaxBackups             = 100
	minUserNameLen               = 3
	maxUserNameLen               = 64
)

const appDirName = "activity-monitor"

type Config struct {
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Collection CollectionConfig `toml:"collection" json:"collection"`
	Cleanup    CleanupConfig    `toml:"cleanup" json:"cleanup"`
	Logging    LoggingConfig    `toml:"logging" json:"logging"`
	User       UserConfig       `toml:"user" json:"user"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path" json:"db_path"`
}

type CollectionConfig struct {
	IntervalSeconds        int `toml:"interval_seconds" json:"interval_seconds"`
	InputPollMillis        int `toml:"input_poll_millis" json:"input_poll_millis"`
	InputStopTimeoutMillis int `toml:"input_stop_timeout_millis" json:"input_stop_timeout_millis"`
}

type CleanupConfig struct {
	RetentionDays int `toml:"retention_days" json:"retention_days"`
	IntervalHours int `toml:"interval_hours" json:"interval_hours"`
}

// LoggingConfig controls optional file output. An empty File logs to stderr only.
type LoggingConfig struct {
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
}

// UserConfig names the account samples are attributed to. An empty Name runs
// the collector in guest mode.
type UserConfig struct {
	Name string `toml:"name" json:"name"`
}

func (c CollectionConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c CollectionConfig) InputPollInterval() time.Duration {
	return time.Duration(c.InputPollMillis) * time.Millisecond
}

func (c CollectionConfig) InputStopTimeout() time.Duration {
	return time.Duration(c.InputStopTimeoutMillis) * time.Millisecond
}

func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath: filepath.Join(dataHome(), appDirName, "data.db"),
		},
		Collection: CollectionConfig{
			IntervalSeconds:        5,
			InputPollMillis:        30,
			InputStopTimeoutMillis: 200,
		},
		Cleanup: CleanupConfig{
			RetentionDays: 90,
			IntervalHours: 24,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/activity-monitor/config.toml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, appDirName, "config.toml")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return os.TempDir()
	}
	return home
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return NormalizeAndValidate(DefaultConfig())
	}
	return cfg, err
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg

	var err error
	sanitized.Storage.DBPath, err = sanitizePath("storage.db_path", sanitized.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sanitized.Logging.File) != "" {
		sanitized.Logging.File, err = sanitizePath("logging.file", sanitized.Logging.File)
		if err != nil {
			return nil, err
		}
	} else {
		sanitized.Logging.File = ""
	}

	if err := validateRange("collection.interval_seconds", sanitized.Collection.IntervalSeconds, minCollectionIntervalSeconds, maxCollectionIntervalSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("collection.input_poll_millis", sanitized.Collection.InputPollMillis, minInputPollMillis, maxInputPollMillis); err != nil {
		return nil, err
	}
	if err := validateRange("collection.input_stop_timeout_millis", sanitized.Collection.InputStopTimeoutMillis, minInputStopTimeoutMillis, maxInputStopTimeoutMillis); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.retention_days", sanitized.Cleanup.RetentionDays, minRetentionDays, maxRetentionDays); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.interval_hours", sanitized.Cleanup.IntervalHours, minCleanupIntervalHours, maxCleanupIntervalHours); err != nil {
		return nil, err
	}
	if err := validateRange("logging.max_size_mb", sanitized.Logging.MaxSizeMB, minLogMaxSizeMB, maxLogMaxSizeMB); err != nil {
		return nil, err
	}
	if err := validateRange("logging.max_backups", sanitized.Logging.MaxBackups, minLogMaxBackups, maxLogMaxBackups); err != nil {
		return nil, err
	}

	sanitized.User.Name = strings.TrimSpace(sanitized.User.Name)
	if n := utf8.RuneCountInString(sanitized.User.Name); n != 0 {
		if err := validateRange("user.name length", n, minUserNameLen, maxUserNameLen); err != nil {
			return nil, err
		}
	}

	return &sanitized, nil
}

func Save(path string, cfg *Config) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("config path must not be empty")
	}

	sanitized, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}

	var data bytes.Buffer
	if err := toml.NewEncoder(&data).Encode(sanitized); err != nil {
		return fmt.Errorf("encode config TOML: %w", err)
	}

	dir := filepath.Dir(trimmedPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data.Bytes()); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, trimmedPath); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	tmpPath = ""

	return nil
}

// sanitizePath expands a leading "~/" and requires an absolute result.
func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		trimmed = filepath.Join(homeDir(), strings.TrimPrefix(trimmed, "~"))
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}

	return nil
}
