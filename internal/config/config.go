// Package config loads arhtool's persistent settings: where archives and
// their manifests live by default, and how verbose logging should be.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds arhtool's configuration, loadable from a YAML file and
// overridable by CLI flags.
type Config struct {
	WorkspaceDir   string `mapstructure:"workspace_dir"`
	BlockSizePow   uint16 `mapstructure:"block_size_pow"`
	Compress       bool   `mapstructure:"compress"`
	ManifestSuffix string `mapstructure:"manifest_suffix"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// Load initializes and loads configuration from file, falling back to
// defaults when no config file is present.
func Load(cfgFile string) (*Config, error) {
	viper.SetDefault("workspace_dir", "")
	viper.SetDefault("block_size_pow", 9)
	viper.SetDefault("compress", true)
	viper.SetDefault("manifest_suffix", ".manifest.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName("arhtool")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.BlockSizePow == 0 {
		cfg.BlockSizePow = 9
	}

	return &cfg, nil
}
