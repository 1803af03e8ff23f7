package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/mdrimport/internal/logging"
	"github.com/mesh-intelligence/mdrimport/internal/paths"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "MDRIMPORT"
)

// setDefaults registers every scalar key so that MDRIMPORT_* environment
// variables reach Unmarshal even when config.yaml does not name the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", types.BackendSQLite)
	v.SetDefault("data_dir", "")
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "")
	v.SetDefault("monitor.database", types.DefaultMonitorDatabase)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatJSON)
	v.SetDefault("log.dir", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("transfer.batch_size", 0)
}

// loadConfig reads config.yaml from configDir with environment overrides,
// resolves the SQLite data directory and validates the result. A missing
// config.yaml is not an error.
func loadConfig(configDir, dataDirFlag string) (types.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Backend == types.BackendSQLite {
		dir, err := paths.ResolveDataDir(dataDirFlag, cfg.DataDir)
		if err != nil {
			return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveConfig resolves the config directory from the global flag and
// loads the configuration found there.
func resolveConfig() (string, types.Config, error) {
	dir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return "", types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(dir, flags.dataDir)
	if err != nil {
		return "", types.Config{}, err
	}
	return dir, cfg, nil
}
