// Package config loads vendori settings from a YAML file, VENDORI_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration struct for vendori.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig selects and configures the snapshot medium.
type StorageConfig struct {
	Medium        string       `mapstructure:"medium"`
	Compress      bool         `mapstructure:"compress"`
	CorruptPolicy string       `mapstructure:"corrupt_policy"`
	File          FileConfig   `mapstructure:"file"`
	KV            KVConfig     `mapstructure:"kv"`
	Remote        RemoteConfig `mapstructure:"remote"`
}

// FileConfig holds the file medium settings.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// KVConfig holds the badger medium settings. An empty Dir keeps the store
// in memory.
type KVConfig struct {
	Dir string `mapstructure:"dir"`
	Key string `mapstructure:"key"`
}

// RemoteConfig holds the remote HTTP medium settings.
type RemoteConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UploadPath   string        `mapstructure:"upload_path"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the snapshot server settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	PublicDir      string `mapstructure:"public_dir"`
	SnapshotFile   string `mapstructure:"snapshot_file"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// Storage medium names.
const (
	MediumFile   = "file"
	MediumKV     = "kv"
	MediumRemote = "remote"
	MediumMemory = "memory"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("log.level must be debug, info, warn or error")
	// ErrInvalidMedium indicates an unknown storage medium.
	ErrInvalidMedium = errors.New("storage.medium must be file, kv, remote or memory")
	// ErrInvalidCorruptPolicy indicates an unknown corrupt policy.
	ErrInvalidCorruptPolicy = errors.New("storage.corrupt_policy must be reset or fail")
	// ErrMissingFilePath indicates the file medium has no path.
	ErrMissingFilePath = errors.New("storage.file.path is required for the file medium")
	// ErrMissingKVKey indicates the kv medium has no key.
	ErrMissingKVKey = errors.New("storage.kv.key is required for the kv medium")
	// ErrMissingBaseURL indicates the remote medium has no base URL.
	ErrMissingBaseURL = errors.New("storage.remote.base_url is required for the remote medium")
	// ErrInvalidTimeout indicates a non-positive remote timeout.
	ErrInvalidTimeout = errors.New("storage.remote.timeout must be positive")
	// ErrInvalidMaxUpload indicates a non-positive upload limit.
	ErrInvalidMaxUpload = errors.New("server.max_upload_bytes must be positive")
	// ErrMissingSnapshotFile indicates the server has no snapshot file name.
	ErrMissingSnapshotFile = errors.New("server.snapshot_file must be a plain file name")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Log.Level)
	}

	storageErr := c.validateStorage()
	if storageErr != nil {
		return storageErr
	}

	return c.validateServer()
}

func (c *Config) validateStorage() error {
	switch strings.ToLower(c.Storage.CorruptPolicy) {
	case "reset", "fail":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCorruptPolicy, c.Storage.CorruptPolicy)
	}

	switch c.Storage.Medium {
	case MediumFile:
		if c.Storage.File.Path == "" {
			return ErrMissingFilePath
		}
	case MediumKV:
		if c.Storage.KV.Key == "" {
			return ErrMissingKVKey
		}
	case MediumRemote:
		if c.Storage.Remote.BaseURL == "" {
			return ErrMissingBaseURL
		}
		if c.Storage.Remote.Timeout <= 0 {
			return ErrInvalidTimeout
		}
	case MediumMemory:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidMedium, c.Storage.Medium)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxUploadBytes <= 0 {
		return ErrInvalidMaxUpload
	}

	name := c.Server.SnapshotFile
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrMissingSnapshotFile
	}

	return nil
}
