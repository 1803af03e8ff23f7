package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// sqliteBridge attaches the monitor's sf file as mn. ATTACH cannot be
// limited to some tables, so the ledger tables are reachable under mn as
// well; only the two record tables may be referenced through it.
type sqliteBridge struct {
	linker
	path string
}

func (b *sqliteBridge) Establish(ctx context.Context) error {
	if b.path == "" {
		return &types.BridgeError{Phase: types.BridgeEstablish, Err: fmt.Errorf("monitor file not configured")}
	}
	if err := database.Attach(ctx, b.db.DB, b.path, types.NamespaceBridge); err != nil {
		return &types.BridgeError{Phase: types.BridgeEstablish, Err: err}
	}
	if err := b.checkTables(ctx); err != nil {
		if terr := b.Teardown(context.WithoutCancel(ctx)); terr != nil {
			err = fmt.Errorf("%w (teardown: %v)", err, terr)
		}
		return &types.BridgeError{Phase: types.BridgeEstablish, Err: err}
	}
	b.log.Info("bridge established",
		zap.String("database", b.db.Name),
		zap.String("monitor", b.path))
	return nil
}

// checkTables fails when the attached file lacks a mirrored table, as
// IMPORT FOREIGN SCHEMA would on PostgreSQL.
func (b *sqliteBridge) checkTables(ctx context.Context) error {
	for _, t := range []string{StudyRecords, ObjectRecords} {
		var n int
		err := b.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+types.NamespaceBridge+".sqlite_master WHERE type = 'table' AND name = ?", t).Scan(&n)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("monitor table %s.%s not found", types.NamespaceMonitor, t)
		}
	}
	return nil
}

func (b *sqliteBridge) Teardown(ctx context.Context) error {
	ok, err := b.Exists(ctx)
	if err != nil {
		return &types.BridgeError{Phase: types.BridgeTeardown, Err: err}
	}
	if !ok {
		return nil
	}
	if err := database.Detach(ctx, b.db.DB, types.NamespaceBridge); err != nil {
		return &types.BridgeError{Phase: types.BridgeTeardown, Err: err}
	}
	b.log.Info("bridge torn down", zap.String("database", b.db.Name))
	return nil
}

func (b *sqliteBridge) Exists(ctx context.Context) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_database_list WHERE name = ?", types.NamespaceBridge).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check bridge: %w", err)
	}
	return n > 0, nil
}
