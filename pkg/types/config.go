package types

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Config holds everything a run needs to reach the two databases.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres,omitempty" mapstructure:"postgres"`
	Monitor  MonitorConfig  `json:"monitor" yaml:"monitor" mapstructure:"monitor"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics,omitempty" mapstructure:"metrics"`
	Transfer TransferConfig `json:"transfer" yaml:"transfer,omitempty" mapstructure:"transfer"`
}

// PostgresConfig carries the server credentials shared by the monitoring
// store and every source database.
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	SSLMode  string `json:"sslmode" yaml:"sslmode,omitempty" mapstructure:"sslmode"`
}

// DSN returns a connection URL for the named database.
func (p PostgresConfig) DSN(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
		Path:   "/" + database,
	}
	if p.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(p.SSLMode)
	}
	return u.String()
}

// MonitorConfig names the monitoring store database.
type MonitorConfig struct {
	Database string `json:"database" yaml:"database" mapstructure:"database"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // "json" | "console"
	Dir    string `json:"dir" yaml:"dir,omitempty" mapstructure:"dir"`
}

// MetricsConfig configures the run metrics textfile.
type MetricsConfig struct {
	Textfile string `json:"textfile" yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// TransferConfig overrides the batch policy of the table catalog.
type TransferConfig struct {
	BatchSize  int            `json:"batch_size" yaml:"batch_size,omitempty" mapstructure:"batch_size"`
	BatchSizes map[string]int `json:"batch_sizes" yaml:"batch_sizes,omitempty" mapstructure:"batch_sizes"`
}

// Supported backend names.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DefaultMonitorDatabase is the monitoring store database name.
const DefaultMonitorDatabase = "mon"

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrDataDirEmpty      = errors.New("sqlite backend requires data_dir")
	ErrPostgresHostEmpty = errors.New("postgres backend requires postgres.host")
	ErrBatchSizeInvalid  = errors.New("batch size must be positive")
)

var knownBackends = map[string]bool{
	BackendPostgres: true,
	BackendSQLite:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DataDir == "" {
			return ErrDataDirEmpty
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			return ErrPostgresHostEmpty
		}
	}
	if c.Transfer.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	for table, n := range c.Transfer.BatchSizes {
		if n <= 0 {
			return fmt.Errorf("%w: %s", ErrBatchSizeInvalid, table)
		}
	}
	return nil
}

// MonitorDatabase returns the configured monitor database name or the default.
func (c Config) MonitorDatabase() string {
	if c.Monitor.Database != "" {
		return c.Monitor.Database
	}
	return DefaultMonitorDatabase
}

// BatchSizeFor returns the batch size for table. A per-table setting wins
// over the global BatchSize, and the global BatchSize replaces fallback
// even where fallback is a table's own policy (StudiesBatchSize).
func (t TransferConfig) BatchSizeFor(table string, fallback int) int {
	if n, ok := t.BatchSizes[table]; ok {
		return n
	}
	if t.BatchSize > 0 {
		return t.BatchSize
	}
	return fallback
}
