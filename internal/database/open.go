package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Driver names registered by the blank imports above.
const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

// sqliteMainFile holds nothing; the namespaces live in attached files.
const sqliteMainFile = "main.db"

// sqliteParams makes the driver write time.Time values in a layout
// SQLite's date functions parse.
const sqliteParams = "?_time_format=sqlite"

// DB is an open database handle together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
	// Name is the logical database name (source database or monitor).
	Name string
}

// Target describes how another database reaches the monitoring store.
type Target struct {
	Database string
	Host     string
	Port     int
	User     string
	Password string
	// Path is the SQLite file holding the sf namespace.
	Path string
}

// MonitorTarget returns the bridge target for the configured monitor.
func MonitorTarget(cfg types.Config) Target {
	name := cfg.MonitorDatabase()
	t := Target{
		Database: name,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
	}
	if cfg.Backend == types.BackendSQLite {
		t.Path = NamespaceFile(cfg.DataDir, name, types.NamespaceMonitor)
	}
	return t
}

// NamespaceFile returns the SQLite file backing ns in database.
func NamespaceFile(dataDir, database, ns string) string {
	return filepath.Join(dataDir, database, ns+".db")
}

// OpenSource opens a source database with the staging and normalized
// namespaces reachable as sd and ad.
func OpenSource(ctx context.Context, cfg types.Config, database string) (*DB, error) {
	return open(ctx, cfg, database, types.NamespaceStaging, types.NamespaceNormalized)
}

// OpenMonitor opens the monitoring store with its tables reachable as sf.
func OpenMonitor(ctx context.Context, cfg types.Config) (*DB, error) {
	return open(ctx, cfg, cfg.MonitorDatabase(), types.NamespaceMonitor)
}

func open(ctx context.Context, cfg types.Config, database string, namespaces ...string) (*DB, error) {
	dialect, err := DialectFor(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch cfg.Backend {
	case types.BackendSQLite:
		db, err = openSQLite(ctx, cfg.DataDir, database, namespaces)
	default:
		db, err = openPostgres(ctx, cfg.Postgres, database)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database %s: %w", cfg.Backend, database, err)
	}
	return &DB{DB: db, Dialect: dialect, Name: database}, nil
}

func openPostgres(ctx context.Context, pg types.PostgresConfig, database string) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, pg.DSN(database))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openSQLite opens the database directory and attaches one file per
// namespace. ATTACH state is per connection, so the pool is pinned to a
// single connection that is never recycled.
func openSQLite(ctx context.Context, dataDir, database string, namespaces []string) (*sql.DB, error) {
	dir := filepath.Join(dataDir, database)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverSQLite, filepath.Join(dir, sqliteMainFile)+sqliteParams)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, p := range []string{"PRAGMA busy_timeout = 10000", "PRAGMA foreign_keys = ON"} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	for _, ns := range namespaces {
		if err := Attach(ctx, db, NamespaceFile(dataDir, database, ns), ns); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Attach attaches the SQLite file at path under schema name ns.
func Attach(ctx context.Context, db *sql.DB, path, ns string) error {
	if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS "+ns, path); err != nil {
		return fmt.Errorf("attach %s as %s: %w", path, ns, err)
	}
	return nil
}

// Detach detaches schema ns.
func Detach(ctx context.Context, db *sql.DB, ns string) error {
	if _, err := db.ExecContext(ctx, "DETACH DATABASE "+ns); err != nil {
		return fmt.Errorf("detach %s: %w", ns, err)
	}
	return nil
}
