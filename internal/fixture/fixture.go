// Package fixture builds SQLite monitoring stores and source databases in
// a temporary directory for tests: it bootstraps the monitor, registers
// sources, creates staging tables and seeds rows.
package fixture

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/monitor"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Env is a SQLite deployment rooted in a test temp dir.
type Env struct {
	Config  types.Config
	Monitor *database.DB
	Store   *monitor.Store
	Log     *zap.Logger
}

// New returns an Env with a bootstrapped monitoring store.
func New(t testing.TB) *Env {
	t.Helper()
	ctx := context.Background()

	cfg := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
		Monitor: types.MonitorConfig{Database: types.DefaultMonitorDatabase},
		Log:     types.LogConfig{Level: "debug", Format: "console"},
	}
	mon, err := database.OpenMonitor(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mon.Close() })

	store := monitor.NewStore(mon)
	require.NoError(t, store.Bootstrap(ctx))

	return &Env{Config: cfg, Monitor: mon, Store: store, Log: zap.NewNop()}
}

// Source returns a source with the given capabilities. StudyIEC sources
// get the iec storage label.
func Source(id int, dbName, iec string, caps ...types.Capability) types.Source {
	src := types.Source{ID: id, DatabaseName: dbName, Capabilities: types.NewCapabilitySet(caps...)}
	if src.Has(types.StudyIEC) {
		storage, err := types.ParseIECStorage(iec)
		if err == nil {
			src.IEC = storage
		}
	}
	return src
}

// RegisterSource writes src to sf.source_parameters.
func (e *Env) RegisterSource(t testing.TB, src types.Source) {
	t.Helper()
	cols := []string{"id", "default_name", "database_name", "study_iec_storage_type"}
	iec := ""
	if src.IEC.Kind != types.IECNone {
		iec = src.IEC.String()
	}
	args := []any{src.ID, src.DatabaseName, src.DatabaseName, iec}
	for _, c := range types.AllCapabilities() {
		cols = append(cols, c.Column())
		args = append(args, src.Capabilities&types.NewCapabilitySet(c) != 0)
	}
	stmt := fmt.Sprintf("INSERT INTO sf.source_parameters (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(e.Monitor.Dialect, len(cols)))
	_, err := e.Monitor.Exec(stmt, args...)
	require.NoError(t, err)
}

// OpenSource opens (creating if needed) the source database of src with
// every declared staging table present.
func (e *Env) OpenSource(t testing.TB, src types.Source) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSource(ctx, e.Config, src.DatabaseName)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, spec := range catalog.Declared() {
		require.NoError(t, CreateStaging(ctx, db, spec))
	}
	return db
}

// CreateStaging creates the staging copy of spec in db, with every copied
// column nullable.
func CreateStaging(ctx context.Context, db *database.DB, spec types.TableSpec) error {
	if ns := db.Dialect.CreateNamespace(types.NamespaceStaging); ns != "" {
		if _, err := db.ExecContext(ctx, ns); err != nil {
			return err
		}
	}
	defs := []string{db.Dialect.IdentityColumn()}
	for _, c := range spec.Columns {
		if c.Copied {
			defs = append(defs, c.Name+" "+db.Dialect.ColumnType(c.Type))
		}
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (%s)",
		types.NamespaceStaging, spec.Name, strings.Join(defs, ", "))
	_, err := db.ExecContext(ctx, stmt)
	return err
}

// SeedTable inserts perKey staging rows for every key into table. The join
// key holds the key; NOT NULL columns get a filler value; the rest stay
// NULL unless set in extra.
func SeedTable(t testing.TB, db *database.DB, table string, keys []string, perKey int, extra map[string]any) {
	t.Helper()
	spec, err := catalog.Lookup(table)
	require.NoError(t, err)

	cols := []string{spec.JoinKey}
	for _, c := range spec.Columns {
		if _, set := extra[c.Name]; set {
			continue
		}
		if c.Copied && c.NotNull && c.Name != spec.JoinKey {
			cols = append(cols, c.Name)
		}
	}
	for name := range extra {
		cols = append(cols, name)
	}

	stmt := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		types.NamespaceStaging, table, strings.Join(cols, ", "), placeholders(db.Dialect, len(cols)))

	tx, err := db.Begin()
	require.NoError(t, err)
	for _, k := range keys {
		for i := 0; i < perKey; i++ {
			args := []any{k}
			for _, c := range cols[1:] {
				if v, ok := extra[c]; ok {
					args = append(args, v)
					continue
				}
				args = append(args, filler(spec, c, i))
			}
			_, err := tx.Exec(stmt, args...)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tx.Commit())
}

// SeedObjects inserts one data_objects row per object key, each linked to
// study.
func SeedObjects(t testing.TB, db *database.DB, study string, objects []string) {
	t.Helper()
	SeedTable(t, db, catalog.TableDataObjects, objects, 1, map[string]any{catalog.StudyKey: study})
}

func filler(spec types.TableSpec, col string, i int) any {
	for _, c := range spec.Columns {
		if c.Name != col {
			continue
		}
		switch c.Type {
		case types.ColInt:
			return i
		case types.ColBool:
			return i%2 == 1
		case types.ColTimestamp:
			return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return fmt.Sprintf("%s-%d", col, i)
}

// Keys returns n keys of the form prefix000001.
func Keys(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%06d", prefix, i+1)
	}
	return out
}

// Record is a monitor per-record row.
type Record struct {
	SourceID       int
	SdID           string
	LastRevised    time.Time
	AssumeComplete bool
	LocalPath      string
}

// AddRecords inserts rows into sf.source_data_studies or
// sf.source_data_objects.
func (e *Env) AddRecords(t testing.TB, table string, recs ...Record) {
	t.Helper()
	stmt := fmt.Sprintf(`INSERT INTO sf.%s (source_id, sd_id, last_revised, assume_complete, local_path)
VALUES (?, ?, ?, ?, ?)`, table)
	for _, r := range recs {
		var (
			revised  any
			complete any
			path     any
		)
		if !r.LastRevised.IsZero() {
			revised = r.LastRevised.UTC()
		}
		if r.AssumeComplete {
			complete = true
		}
		if r.LocalPath != "" {
			path = r.LocalPath
		}
		_, err := e.Monitor.Exec(stmt, r.SourceID, r.SdID, revised, complete, path)
		require.NoError(t, err)
	}
}

// AddHarvest inserts a completed harvest event.
func (e *Env) AddHarvest(t testing.TB, id, sourceID int, typeID int, cutoff, ended time.Time) {
	t.Helper()
	var c any
	if !cutoff.IsZero() {
		c = cutoff.UTC()
	}
	_, err := e.Monitor.Exec(`INSERT INTO sf.harvest_events (id, source_id, type_id, cutoff_date, time_started, time_ended)
VALUES (?, ?, ?, ?, ?, ?)`, id, sourceID, typeID, c, ended.Add(-time.Hour).UTC(), ended.UTC())
	require.NoError(t, err)
}

// AddImportEvent inserts a bare import event with the given id.
func (e *Env) AddImportEvent(t testing.TB, id, sourceID int) {
	t.Helper()
	now := time.Now().UTC()
	_, err := e.Monitor.Exec(`INSERT INTO sf.import_events
    (id, source_id, tables_rebuilt, time_started, time_ended, num_studies_imported, num_objects_imported)
VALUES (?, ?, ?, ?, ?, 0, 0)`, id, sourceID, false, now, now)
	require.NoError(t, err)
}

// Count returns the row count of ns.table.
func Count(t testing.TB, db *database.DB, ns, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", ns, table)).Scan(&n))
	return n
}

// TableExists reports whether ns.table exists in a SQLite database.
func TableExists(t testing.TB, db *database.DB, ns, table string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM %s.sqlite_master WHERE type = 'table' AND name = ?", ns), table).Scan(&n))
	return n > 0
}

func placeholders(d database.Dialect, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}
