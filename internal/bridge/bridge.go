// Package bridge mirrors the monitor's per-record tables into a source
// database under the mn namespace for the duration of one run, so the
// transfer engine can filter staging rows by harvest state and the importer
// can stamp imported dates in a single statement.
//
// PostgreSQL realises the mirror with postgres_fdw, importing only the two
// record tables. SQLite attaches the monitor's sf file, which exposes the
// whole sf namespace under mn; statements in this module reference only
// StudyRecords and ObjectRecords there. Either way the mirror is read/write.
package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Mirrored monitor tables.
const (
	StudyRecords  = "source_data_studies"
	ObjectRecords = "source_data_objects"
)

// Bridge manages the mn mirror inside one source database.
type Bridge interface {
	// Establish creates the mirror. On failure whatever was created is
	// torn down before the error is returned.
	Establish(ctx context.Context) error
	// Teardown removes every mirror object. It is safe on a partial or
	// absent mirror.
	Teardown(ctx context.Context) error
	// Exists reports whether any mirror object remains.
	Exists(ctx context.Context) (bool, error)
	// UpdateStudiesImported stamps the monitor records of the staged
	// studies with the import id and the current time.
	UpdateStudiesImported(ctx context.Context, sourceID, importID int) (int64, error)
	// UpdateObjectsImported does the same for staged data objects.
	UpdateObjectsImported(ctx context.Context, sourceID, importID int) (int64, error)
}

// New returns the bridge realisation for the dialect of db.
func New(db *database.DB, target database.Target, log *zap.Logger) Bridge {
	base := linker{db: db, log: log}
	if db.Dialect.Name() == types.BackendSQLite {
		return &sqliteBridge{linker: base, path: target.Path}
	}
	return &postgresBridge{linker: base, target: target}
}

// linker holds the engine-neutral parts of a bridge.
type linker struct {
	db  *database.DB
	log *zap.Logger
}

func (l linker) UpdateStudiesImported(ctx context.Context, sourceID, importID int) (int64, error) {
	return l.updateImported(ctx, StudyRecords, catalog.TableStudies, catalog.StudyKey, sourceID, importID)
}

func (l linker) UpdateObjectsImported(ctx context.Context, sourceID, importID int) (int64, error) {
	return l.updateImported(ctx, ObjectRecords, catalog.TableDataObjects, catalog.ObjectKey, sourceID, importID)
}

func (l linker) updateImported(ctx context.Context, records, staged, key string, sourceID, importID int) (int64, error) {
	q := database.NewQuery(l.db.Dialect)
	stmt := fmt.Sprintf(`UPDATE %s.%s SET last_import_id = %s, last_imported = CURRENT_TIMESTAMP
WHERE source_id = %s AND sd_id IN (SELECT %s FROM %s.%s)`,
		types.NamespaceBridge, records, q.Arg(importID), q.Arg(sourceID),
		key, types.NamespaceStaging, staged)

	res, err := l.db.ExecContext(ctx, stmt, q.Args()...)
	if err != nil {
		return 0, &types.BridgeError{Phase: types.BridgeUpdate, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &types.BridgeError{Phase: types.BridgeUpdate, Err: err}
	}
	l.log.Info("monitor records stamped",
		zap.Int("source_id", sourceID),
		zap.Int("import_id", importID),
		zap.String("records", records),
		zap.Int64("rows", n))
	return n, nil
}

// establish runs steps in order and tears down on the first failure.
func establish(ctx context.Context, b Bridge, db *database.DB, steps []string) error {
	if err := database.ExecAll(ctx, db, steps); err != nil {
		if terr := b.Teardown(context.WithoutCancel(ctx)); terr != nil {
			return &types.BridgeError{Phase: types.BridgeEstablish, Err: fmt.Errorf("%w (teardown: %v)", err, terr)}
		}
		return &types.BridgeError{Phase: types.BridgeEstablish, Err: err}
	}
	return nil
}
