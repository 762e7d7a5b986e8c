package config

// Package config provides a reusable loader for routingcore configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"routingcore/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a routing node. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Node struct {
		ID            string `mapstructure:"id" json:"id"`
		SecretKeyPath string `mapstructure:"secret_key_path" json:"secret_key_path"`
	} `mapstructure:"node" json:"node"`

	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`

	Routing struct {
		UpdateIntervalMS          int  `mapstructure:"update_interval_ms" json:"update_interval_ms"`
		PruneUnreachableAfterSec  int  `mapstructure:"prune_unreachable_after_sec" json:"prune_unreachable_after_sec"`
		PruneEdgesAfterSec        int  `mapstructure:"prune_edges_after_sec" json:"prune_edges_after_sec"`
		SkipTombstonesSec         int  `mapstructure:"skip_tombstones_sec" json:"skip_tombstones_sec"`
		PruneEdgesEnabled         bool `mapstructure:"prune_edges_enabled" json:"prune_edges_enabled"`
		SkipTombstonesEnabled     bool `mapstructure:"skip_tombstones_enabled" json:"skip_tombstones_enabled"`
		MaxVerifyBatch            int  `mapstructure:"max_verify_batch" json:"max_verify_batch"`
	} `mapstructure:"routing" json:"routing"`

	Storage struct {
		ComponentDir string `mapstructure:"component_dir" json:"component_dir"`
	} `mapstructure:"storage" json:"storage"`

	Metrics struct {
		Addr string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the ROUTINGCORE_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("ROUTINGCORE_ENV", ""))
}
