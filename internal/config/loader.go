package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".vendori"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for vendori settings.
const envPrefix = "VENDORI"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the built-in configuration, ignoring files and env.
func Default() *Config {
	viperCfg := viper.New()
	applyDefaults(viperCfg)

	var cfg Config
	// Defaults always decode.
	_ = viperCfg.Unmarshal(&cfg)
	return &cfg
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("log.level", DefaultLogLevel)

	viperCfg.SetDefault("storage.medium", DefaultStorageMedium)
	viperCfg.SetDefault("storage.compress", DefaultStorageCompress)
	viperCfg.SetDefault("storage.corrupt_policy", DefaultCorruptPolicy)
	viperCfg.SetDefault("storage.file.path", DefaultFilePath)
	viperCfg.SetDefault("storage.kv.dir", DefaultKVDir)
	viperCfg.SetDefault("storage.kv.key", DefaultKVKey)
	viperCfg.SetDefault("storage.remote.base_url", "")
	viperCfg.SetDefault("storage.remote.upload_path", DefaultRemoteUploadPath)
	viperCfg.SetDefault("storage.remote.snapshot_path", DefaultRemoteSnapshotPath)
	viperCfg.SetDefault("storage.remote.timeout", DefaultRemoteTimeout)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.public_dir", DefaultServerPublicDir)
	viperCfg.SetDefault("server.snapshot_file", DefaultServerSnapshotFile)
	viperCfg.SetDefault("server.max_upload_bytes", DefaultServerMaxUploadBytes)
}
