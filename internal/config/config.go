package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/spf13/viper"
)

const (
	configName = "litetable-filter"
	configType = "yaml"
	envPrefix  = "LITETABLE"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type WALConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	WAL     WALConfig     `mapstructure:"wal"`

	// DataDir holds the WAL. Defaults to the LiteTable directory.
	DataDir     string        `mapstructure:"data_dir"`
	ShardCount  int           `mapstructure:"shard_count"`
	Debug       bool          `mapstructure:"debug"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 9000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9100)
	v.SetDefault("wal.enabled", true)
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("shard_count", 4)
	v.SetDefault("debug", false)
	v.SetDefault("stop_timeout", 10*time.Second)
}

// Load reads the configuration. Values come from, in increasing precedence: defaults, the
// config file and LITETABLE_ environment variables (LITETABLE_SERVER_PORT sets server.port).
//
// An explicit path must exist. Without one, litetable-filter.yaml is looked up in the LiteTable
// directory and skipped when absent.
func Load(path string) (*Config, error) {
	liteTableDir, err := litetable.GetLitetableDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get LiteTable directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, liteTableDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(liteTableDir)
		if err = v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.DataDir != "" {
		cfg.DataDir = filepath.Clean(cfg.DataDir)
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Server.Address == "" {
		errGrp = append(errGrp, errors.New("server address required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errGrp = append(errGrp, fmt.Errorf("invalid metrics port %d", c.Metrics.Port))
		}
		if c.Metrics.Port == c.Server.Port {
			errGrp = append(errGrp, errors.New("metrics port must differ from server port"))
		}
	}
	if c.WAL.Enabled && c.DataDir == "" {
		errGrp = append(errGrp, errors.New("data dir required when the WAL is enabled"))
	}
	if c.ShardCount < 1 {
		errGrp = append(errGrp, fmt.Errorf("invalid shard count %d", c.ShardCount))
	}
	if c.StopTimeout <= 0 {
		errGrp = append(errGrp, errors.New("stop timeout must be positive"))
	}
	return errors.Join(errGrp...)
}
