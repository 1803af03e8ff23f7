// Package database opens connections to source databases and the
// monitoring store for the two supported engines and renders the
// engine-specific fragments of the DDL and DML the importer issues.
//
// A SQLite "database" is a directory under data_dir holding one file per
// namespace (sd.db, ad.db, sf.db). The files are attached under their
// namespace name so that statements use the same qualified names
// (sd.studies, ad.studies, sf.import_events) on both engines.
package database

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Dialect renders the statement fragments that differ between engines.
type Dialect interface {
	// Name returns the backend name (types.BackendPostgres or types.BackendSQLite).
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// ColumnType renders a catalog column type.
	ColumnType(t types.ColumnType) string
	// IdentityColumn renders the surrogate primary key column definition.
	IdentityColumn() string
	// CurrentTimestamp renders the server clock default.
	CurrentTimestamp() string
	// CreateNamespace returns the statement creating ns, or "" when the
	// engine creates namespaces by attaching files.
	CreateNamespace(ns string) string
	// CreateIndex renders an index on ns.table(column).
	CreateIndex(ns, table, column string) string
	// TimeValue wraps a timestamp expression so that comparisons and
	// ordering follow the instant rather than the stored text.
	TimeValue(expr string) string
	// TimeArg converts t to the bind value TimeValue accepts.
	TimeArg(t time.Time) any
}

// sqliteTime is the layout SQLite's date functions read without a zone.
const sqliteTime = "2006-01-02 15:04:05"

// IndexName returns the index name used for table(column).
func IndexName(table, column string) string {
	return fmt.Sprintf("%s_%s_idx", table, column)
}

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

func (Postgres) Name() string { return types.BackendPostgres }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) ColumnType(t types.ColumnType) string {
	switch t {
	case types.ColInt:
		return "INT"
	case types.ColBool:
		return "BOOLEAN"
	case types.ColTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "VARCHAR"
	}
}

func (Postgres) IdentityColumn() string {
	return "id INT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
}

func (Postgres) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }

func (Postgres) CreateNamespace(ns string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + ns
}

func (Postgres) CreateIndex(ns, table, column string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s.%s(%s)", IndexName(table, column), ns, table, column)
}

func (Postgres) TimeValue(expr string) string { return expr }

func (Postgres) TimeArg(t time.Time) any { return t }

// SQLite is the SQLite dialect.
type SQLite struct{}

func (SQLite) Name() string { return types.BackendSQLite }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) ColumnType(t types.ColumnType) string {
	switch t {
	case types.ColInt, types.ColBool:
		return "INTEGER"
	case types.ColTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (SQLite) IdentityColumn() string {
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (SQLite) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }

func (SQLite) CreateNamespace(string) string { return "" }

// CreateIndex qualifies the index rather than the table: SQLite creates
// the index in the schema of its name.
func (SQLite) CreateIndex(ns, table, column string) string {
	return fmt.Sprintf("CREATE INDEX %s.%s ON %s(%s)", ns, IndexName(table, column), table, column)
}

// TimeValue converts to a Julian day number. Timestamps are stored as
// text, and date-only, 'T'-separated and zoned values do not sort as
// text in instant order.
func (SQLite) TimeValue(expr string) string { return "julianday(" + expr + ")" }

func (SQLite) TimeArg(t time.Time) any { return t.UTC().Format(sqliteTime) }

// DialectFor returns the dialect for a backend name.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case types.BackendPostgres:
		return Postgres{}, nil
	case types.BackendSQLite:
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}
