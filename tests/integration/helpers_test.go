package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mdrimport/internal/bridge"
	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/internal/fixture"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// deployment is a seeded SQLite data directory plus a CLI environment
// pointing at it.
type deployment struct {
	fx  *fixture.Env
	cli *TestEnv
}

func newDeployment(t *testing.T) *deployment {
	t.Helper()
	fx := fixture.New(t)
	return &deployment{fx: fx, cli: NewTestEnv(t, fx.Config.DataDir)}
}

// seedStudies registers src and stages n studies with two titles each and
// one object per study. revised sets the monitor last_revised of study i.
func (d *deployment) seedStudies(t *testing.T, src types.Source, n int, revised func(i int) time.Time) (*database.DB, []string) {
	t.Helper()
	d.fx.RegisterSource(t, src)
	db := d.fx.OpenSource(t, src)

	keys := fixture.Keys("NCT", n)
	recs := make([]fixture.Record, 0, n)
	for i, k := range keys {
		r := fixture.Record{SourceID: src.ID, SdID: k, LocalPath: "/harvest/" + k + ".json"}
		if revised != nil {
			r.LastRevised = revised(i)
		}
		recs = append(recs, r)
	}
	d.fx.AddRecords(t, bridge.StudyRecords, recs...)

	fixture.SeedTable(t, db, catalog.TableStudies, keys, 1, nil)
	fixture.SeedTable(t, db, "study_identifiers", keys, 1, nil)
	fixture.SeedTable(t, db, "study_titles", keys, 2, nil)
	for _, k := range keys {
		fixture.SeedObjects(t, db, k, []string{k + "-P"})
	}
	return db, keys
}

// importEvents returns the ledger rows of a source as (id, studies, counts).
func (d *deployment) importEvents(t *testing.T, sourceID int) []ledgerRow {
	t.Helper()
	rows, err := d.fx.Monitor.QueryContext(context.Background(),
		`SELECT id, num_studies_imported, num_objects_imported, table_counts
FROM sf.import_events WHERE source_id = ? ORDER BY id`, sourceID)
	require.NoError(t, err)
	defer rows.Close()

	var out []ledgerRow
	for rows.Next() {
		var r ledgerRow
		require.NoError(t, rows.Scan(&r.ID, &r.Studies, &r.Objects, &r.TableCounts))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

type ledgerRow struct {
	ID          int
	Studies     int64
	Objects     int64
	TableCounts string
}
