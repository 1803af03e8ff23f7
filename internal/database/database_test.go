package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

func TestPlaceholders(t *testing.T) {
	q := NewQuery(Postgres{})
	assert.Equal(t, "$1", q.Arg(7))
	assert.Equal(t, "$2", q.Arg("x"))
	assert.Equal(t, []any{7, "x"}, q.Args())

	s := NewQuery(SQLite{})
	assert.Equal(t, "?", s.Arg(1))
	assert.Equal(t, "?", s.Arg(2))
}

func TestCreateIndex(t *testing.T) {
	assert.Equal(t, "CREATE INDEX studies_sd_sid_idx ON ad.studies(sd_sid)",
		Postgres{}.CreateIndex("ad", "studies", "sd_sid"))
	assert.Equal(t, "CREATE INDEX ad.studies_sd_sid_idx ON studies(sd_sid)",
		SQLite{}.CreateIndex("ad", "studies", "sd_sid"))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor(types.BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, d.Name())

	_, err = DialectFor("oracle")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestStatementKind(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"CREATE TABLE ad.studies (id INT)", "CREATE TABLE"},
		{"create unique index x on y(z)", "CREATE INDEX"},
		{"  INSERT INTO ad.studies SELECT 1", "INSERT"},
		{"IMPORT FOREIGN SCHEMA sf", "IMPORT FOREIGN"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, StatementKind(tt.stmt))
		})
	}
}

func TestErrorClass(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, "42", ErrorClass(fmt.Errorf("wrapped: %w", pgErr)))
	assert.Equal(t, "", ErrorClass(errors.New("plain")))
}

func TestOpenSQLiteAttachesNamespaces(t *testing.T) {
	ctx := context.Background()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	db, err := OpenSource(ctx, cfg, "ctg")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE sd.scratch (id INTEGER)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE ad.scratch (id INTEGER)")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "ctg", "sd.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "ctg", "ad.db"))

	err = ExecAll(ctx, db, []string{"INSERT INTO sd.scratch VALUES (1)", "INSERT INTO nowhere VALUES (1)"})
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "INSERT INTO nowhere VALUES (1)", stmtErr.Statement)
}

func TestMonitorTarget(t *testing.T) {
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: "/data"}
	tgt := MonitorTarget(cfg)
	assert.Equal(t, types.DefaultMonitorDatabase, tgt.Database)
	assert.Equal(t, filepath.Join("/data", "mon", "sf.db"), tgt.Path)
}

func TestTimeValue(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 2, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	q := NewQuery(Postgres{})
	assert.Equal(t, "k.last_revised", q.Dialect().TimeValue("k.last_revised"))
	assert.Equal(t, "$1", q.Time(cutoff))
	assert.Equal(t, []any{cutoff}, q.Args())

	s := NewQuery(SQLite{})
	assert.Equal(t, "julianday(k.last_revised)", s.Dialect().TimeValue("k.last_revised"))
	assert.Equal(t, "julianday(?)", s.Time(cutoff))
	assert.Equal(t, []any{"2024-06-01 00:00:00"}, s.Args())
}

func TestSQLiteTimeComparison(t *testing.T) {
	ctx := context.Background()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	db, err := OpenSource(ctx, cfg, "ctg")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE sd.revisions (id INTEGER, ts TIMESTAMP)")
	require.NoError(t, err)

	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		id int
		ts any
	}{
		{1, "2024-06-01"},
		{2, "2024-06-01T10:00:00Z"},
		{3, "2024-06-01 10:00:00"},
		{4, cutoff.Add(time.Minute)},
		{5, "2024-05-31 23:59:59"},
		{6, "2024-06-01T01:00:00+02:00"},
		{7, cutoff.Add(-time.Second)},
	}
	for _, r := range rows {
		_, err := db.ExecContext(ctx, "INSERT INTO sd.revisions VALUES (?, ?)", r.id, r.ts)
		require.NoError(t, err)
	}

	q := NewQuery(db.Dialect)
	query := "SELECT id FROM sd.revisions WHERE " + q.Dialect().TimeValue("ts") + " >= " + q.Time(cutoff) + " ORDER BY id"
	res, err := db.QueryContext(ctx, query, q.Args()...)
	require.NoError(t, err)
	defer res.Close()

	var got []int
	for res.Next() {
		var id int
		require.NoError(t, res.Scan(&id))
		got = append(got, id)
	}
	require.NoError(t, res.Err())
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}
