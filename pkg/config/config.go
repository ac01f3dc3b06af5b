// Package config provides a reusable loader for brainersd's configuration
// files and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"brainersd/pkg/utils"
)

// Config is the unified configuration for one brainersd node: its peer
// listen address, bootstrap list and redial period, ledger storage path and
// genesis flag, HTTP query API bind address, validator address and logging
// settings. The block producer's tick period is not part of it.
type Config struct {
	Network struct {
		ListenAddr      string        `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers  []string      `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DiscoveryPeriod time.Duration `mapstructure:"discovery_period" json:"discovery_period"`
	} `mapstructure:"network" json:"network"`

	Storage struct {
		DBPath     string `mapstructure:"db_path" json:"db_path"`
		RunGenesis bool   `mapstructure:"run_genesis" json:"run_genesis"`
	} `mapstructure:"storage" json:"storage"`

	API struct {
		BindAddr string `mapstructure:"bind_addr" json:"bind_addr"`
	} `mapstructure:"api" json:"api"`

	Validator struct {
		Address string `mapstructure:"address" json:"address"`
	} `mapstructure:"validator" json:"validator"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. If env is empty, only the default configuration is loaded.
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

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the BRAINERSD_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("BRAINERSD_ENV", ""))
}
