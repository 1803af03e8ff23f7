package integration

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/fixture"
	"github.com/mesh-intelligence/mdrimport/internal/monitor"
	"github.com/mesh-intelligence/mdrimport/internal/schema"
	"github.com/mesh-intelligence/mdrimport/internal/transfer"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// postgresConfig returns a postgres Config from MDRIMPORT_TEST_PG_* or
// skips the test. Both the monitor and the source live in one database.
func postgresConfig(t *testing.T) (types.Config, string) {
	t.Helper()
	host := os.Getenv("MDRIMPORT_TEST_PG_HOST")
	if host == "" {
		t.Skip("MDRIMPORT_TEST_PG_HOST not set")
	}
	port := 5432
	if p := os.Getenv("MDRIMPORT_TEST_PG_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		require.NoError(t, err)
		port = n
	}
	dbName := os.Getenv("MDRIMPORT_TEST_PG_DATABASE")
	if dbName == "" {
		dbName = "mdrimport_test"
	}
	cfg := types.Config{
		Backend: types.BackendPostgres,
		Postgres: types.PostgresConfig{
			Host:     host,
			Port:     port,
			User:     os.Getenv("MDRIMPORT_TEST_PG_USER"),
			Password: os.Getenv("MDRIMPORT_TEST_PG_PASSWORD"),
			SSLMode:  "disable",
		},
		Monitor: types.MonitorConfig{Database: dbName},
	}
	require.NoError(t, cfg.Validate())
	return cfg, dbName
}

func dropSchemas(t *testing.T, db *database.DB, names ...string) {
	t.Helper()
	for _, ns := range names {
		_, err := db.ExecContext(context.Background(), "DROP SCHEMA IF EXISTS "+ns+" CASCADE")
		require.NoError(t, err)
	}
}

func TestPostgresMonitorRoundTrip(t *testing.T) {
	cfg, _ := postgresConfig(t)
	ctx := context.Background()

	mon, err := database.OpenMonitor(ctx, cfg)
	require.NoError(t, err)
	defer mon.Close()
	dropSchemas(t, mon, types.NamespaceMonitor)
	t.Cleanup(func() { dropSchemas(t, mon, types.NamespaceMonitor) })

	store := monitor.NewStore(mon)
	require.NoError(t, store.Bootstrap(ctx))
	require.NoError(t, store.Bootstrap(ctx))

	env := &fixture.Env{Config: cfg, Monitor: mon, Store: store, Log: zap.NewNop()}
	want := fixture.Source(100120, "ctg", "By Years", types.StudyTables, types.StudyIEC, types.ObjectDates)
	env.RegisterSource(t, want)

	got, err := store.FetchSource(ctx, 100120)
	require.NoError(t, err)
	assert.Equal(t, want.Capabilities, got.Capabilities)
	assert.Equal(t, types.IECByYears, got.IEC.Kind)

	err = store.ValidateSources(ctx, []int{100120, 7})
	assert.ErrorIs(t, err, types.ErrSourceNotFound)
}

func TestPostgresSchemaAndChunkedTransfer(t *testing.T) {
	cfg, dbName := postgresConfig(t)
	ctx := context.Background()

	db, err := database.OpenSource(ctx, cfg, dbName)
	require.NoError(t, err)
	defer db.Close()
	dropSchemas(t, db, types.NamespaceStaging, types.NamespaceNormalized)
	t.Cleanup(func() { dropSchemas(t, db, types.NamespaceStaging, types.NamespaceNormalized) })

	src := fixture.Source(900001, dbName, "", types.StudyTables)
	require.NoError(t, schema.NewBuilder(db, zap.NewNop()).Rebuild(ctx, src))

	tables := catalog.ForEntity(src, types.EntityStudy)
	for _, spec := range tables {
		require.NoError(t, fixture.CreateStaging(ctx, db, spec))
	}
	keys := fixture.Keys("PG", 7)
	fixture.SeedTable(t, db, catalog.TableStudies, keys, 1, nil)
	fixture.SeedTable(t, db, "study_titles", keys, 3, nil)

	engine := transfer.NewEngine(db, src, transfer.Options{Batch: types.TransferConfig{BatchSize: 4}}, zap.NewNop())
	results, err := engine.TransferAll(ctx, tables)
	require.NoError(t, err)

	byTable := map[string]transfer.Result{}
	for _, r := range results {
		byTable[r.Table] = r
	}
	assert.EqualValues(t, 7, byTable[catalog.TableStudies].Rows)
	assert.Equal(t, 2, byTable[catalog.TableStudies].Chunks)
	assert.EqualValues(t, 21, byTable["study_titles"].Rows)
	assert.EqualValues(t, 21, fixture.Count(t, db, types.NamespaceNormalized, "study_titles"))

	// A rerun clears before copying.
	_, err = engine.TransferAll(ctx, tables)
	require.NoError(t, err)
	assert.EqualValues(t, 7, fixture.Count(t, db, types.NamespaceNormalized, catalog.TableStudies))
}
