package bridge

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/fixture"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

func TestEstablishAndTeardown(t *testing.T) {
	env := fixture.New(t)
	src := fixture.Source(100120, "ctg", "", types.StudyTables)
	db := env.OpenSource(t, src)
	ctx := context.Background()

	b := New(db, database.MonitorTarget(env.Config), zap.NewNop())
	require.NoError(t, b.Establish(ctx))

	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, fixture.Count(t, db, types.NamespaceBridge, StudyRecords))

	require.NoError(t, b.Teardown(ctx))
	ok, err = b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Teardown of an absent bridge is a no-op.
	require.NoError(t, b.Teardown(ctx))
}

func TestEstablishFailureLeavesNoBridge(t *testing.T) {
	env := fixture.New(t)
	src := fixture.Source(100120, "ctg", "", types.StudyTables)
	db := env.OpenSource(t, src)
	ctx := context.Background()

	target := database.Target{Path: filepath.Join(t.TempDir(), "empty.db")}
	b := New(db, target, zap.NewNop())

	err := b.Establish(ctx)
	require.ErrorIs(t, err, types.ErrBridge)
	var be *types.BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, types.BridgeEstablish, be.Phase)

	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteBridgeAttachesWholeMonitorFile(t *testing.T) {
	env := fixture.New(t)
	src := fixture.Source(100120, "ctg", "", types.StudyTables)
	db := env.OpenSource(t, src)
	ctx := context.Background()

	b := New(db, database.MonitorTarget(env.Config), zap.NewNop())
	require.NoError(t, b.Establish(ctx))
	defer b.Teardown(ctx)

	var tables []string
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM "+types.NamespaceBridge+".sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())

	assert.Subset(t, tables, []string{StudyRecords, ObjectRecords})
	assert.Contains(t, tables, "import_events", "the ledger shares the attached file")
}

func TestUpdateStudiesImported(t *testing.T) {
	env := fixture.New(t)
	src := fixture.Source(100120, "ctg", "", types.StudyTables)
	db := env.OpenSource(t, src)
	ctx := context.Background()

	revised := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	env.AddRecords(t, StudyRecords,
		fixture.Record{SourceID: 100120, SdID: "NCT000001", LastRevised: revised, LocalPath: "/a"},
		fixture.Record{SourceID: 100120, SdID: "NCT000002", LastRevised: revised, LocalPath: "/b"},
		fixture.Record{SourceID: 100120, SdID: "NCT000099", LastRevised: revised, LocalPath: "/c"},
		fixture.Record{SourceID: 100126, SdID: "NCT000001", LastRevised: revised, LocalPath: "/d"},
	)
	fixture.SeedTable(t, db, catalog.TableStudies, []string{"NCT000001", "NCT000002"}, 1, nil)

	b := New(db, database.MonitorTarget(env.Config), zap.NewNop())
	require.NoError(t, b.Establish(ctx))
	defer b.Teardown(ctx)

	n, err := b.UpdateStudiesImported(ctx, 100120, 10001)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var stamped int
	require.NoError(t, env.Monitor.QueryRow(
		"SELECT COUNT(*) FROM sf.source_data_studies WHERE last_import_id = 10001 AND last_imported IS NOT NULL").Scan(&stamped))
	assert.Equal(t, 2, stamped)
}

func TestPostgresStatements(t *testing.T) {
	b := &postgresBridge{target: database.Target{Database: "mon", Host: "db", User: "mdr", Password: "it's"}}
	stmts := b.establishStatements()
	require.Len(t, stmts, 6)
	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS postgres_fdw", stmts[0])
	assert.Contains(t, stmts[1], "port '5432'")
	assert.Contains(t, stmts[2], "password 'it''s'")
	assert.True(t, strings.HasPrefix(stmts[5], "IMPORT FOREIGN SCHEMA sf LIMIT TO (source_data_studies, source_data_objects)"))

	down := teardownStatements()
	assert.Equal(t, "DROP SCHEMA IF EXISTS mn CASCADE", down[0])
	assert.Equal(t, "DROP SERVER IF EXISTS mdr_monitor CASCADE", down[len(down)-1])
}
