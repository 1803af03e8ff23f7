package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// serverName is the foreign server pointing at the monitor database.
const serverName = "mdr_monitor"

type postgresBridge struct {
	linker
	target database.Target
}

// establishStatements returns the fdw setup in execution order.
func (b *postgresBridge) establishStatements() []string {
	host := b.target.Host
	port := b.target.Port
	if port == 0 {
		port = 5432
	}
	return []string{
		"CREATE EXTENSION IF NOT EXISTS postgres_fdw",
		fmt.Sprintf("CREATE SERVER IF NOT EXISTS %s FOREIGN DATA WRAPPER postgres_fdw OPTIONS (host %s, dbname %s, port %s)",
			serverName, literal(host), literal(b.target.Database), literal(strconv.Itoa(port))),
		fmt.Sprintf("CREATE USER MAPPING IF NOT EXISTS FOR CURRENT_USER SERVER %s OPTIONS (user %s, password %s)",
			serverName, literal(b.target.User), literal(b.target.Password)),
		fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", types.NamespaceBridge),
		fmt.Sprintf("CREATE SCHEMA %s", types.NamespaceBridge),
		fmt.Sprintf("IMPORT FOREIGN SCHEMA %s LIMIT TO (%s, %s) FROM SERVER %s INTO %s",
			types.NamespaceMonitor, StudyRecords, ObjectRecords, serverName, types.NamespaceBridge),
	}
}

func teardownStatements() []string {
	return []string{
		fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", types.NamespaceBridge),
		fmt.Sprintf("DROP USER MAPPING IF EXISTS FOR CURRENT_USER SERVER %s", serverName),
		fmt.Sprintf("DROP SERVER IF EXISTS %s CASCADE", serverName),
	}
}

func (b *postgresBridge) Establish(ctx context.Context) error {
	if err := establish(ctx, b, b.db, b.establishStatements()); err != nil {
		return err
	}
	b.log.Info("bridge established",
		zap.String("database", b.db.Name),
		zap.String("server", serverName),
		zap.String("monitor", b.target.Database))
	return nil
}

func (b *postgresBridge) Teardown(ctx context.Context) error {
	if err := database.ExecAll(ctx, b.db, teardownStatements()); err != nil {
		return &types.BridgeError{Phase: types.BridgeTeardown, Err: err}
	}
	b.log.Info("bridge torn down", zap.String("database", b.db.Name))
	return nil
}

func (b *postgresBridge) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := b.db.QueryRowContext(ctx, `SELECT
    EXISTS (SELECT 1 FROM pg_foreign_server WHERE srvname = $1)
    OR EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $2)`,
		serverName, types.NamespaceBridge).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check bridge: %w", err)
	}
	return exists, nil
}

// literal quotes s as a SQL string literal. OPTIONS values cannot be bound.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
