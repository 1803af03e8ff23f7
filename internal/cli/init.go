package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/monitor"
	"github.com/mesh-intelligence/mdrimport/internal/paths"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize mdrimport configuration and the local monitor",
		Long: "Create the configuration directory and a default config.yaml.\n" +
			"With the sqlite backend the data directory and the monitor tables are created too.",
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, cfg, err := resolveConfig()
	if err != nil {
		return sysError(err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	if cfg.Log.Dir == "" {
		if dir, err := paths.DefaultLogDir(); err == nil {
			cfg.Log.Dir = dir
		}
	}
	configPath := paths.ConfigFile(configDir)
	if err := writeConfigIfMissing(configPath, cfg); err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	if cfg.Backend == types.BackendSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return sysError(fmt.Errorf("create data directory: %w", err))
		}
		db, err := database.OpenMonitor(cmd.Context(), cfg)
		if err != nil {
			return sysError(err)
		}
		defer db.Close()
		if err := monitor.NewStore(db).Bootstrap(cmd.Context()); err != nil {
			return sysError(fmt.Errorf("bootstrap monitor: %w", err))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "mdrimport initialized (config: %s)\n", configPath)
	return nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil (idempotent).
// Credentials are never written.
func writeConfigIfMissing(path string, cfg types.Config) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg.Postgres.Password = ""
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
