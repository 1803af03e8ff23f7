// Package monitor reads and prepares the monitoring store: the registry
// of source parameters and the per-record harvest bookkeeping that the
// importer consults through the bridge.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Store is the monitoring store.
type Store struct {
	db *database.DB
}

// NewStore wraps an open monitor database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *database.DB {
	return s.db
}

// Bootstrap creates the monitor tables if they do not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	if err := database.ExecAll(ctx, s.db, bootstrapStatements(s.db.Dialect)); err != nil {
		return fmt.Errorf("bootstrap monitor: %w", err)
	}
	return nil
}

// SourceExists reports whether id is registered in sf.source_parameters.
func (s *Store) SourceExists(ctx context.Context, id int) (bool, error) {
	q := database.NewQuery(s.db.Dialect)
	query := "SELECT COUNT(*) FROM sf.source_parameters WHERE id = " + q.Arg(id)
	var n int
	if err := s.db.QueryRowContext(ctx, query, q.Args()...).Scan(&n); err != nil {
		return false, fmt.Errorf("check source %d: %w", id, err)
	}
	return n > 0, nil
}

// FetchSource loads the parameters of source id. Columns are matched by
// name; absent or NULL capability columns decode to false. A source
// without a row returns types.ErrSourceNotFound.
func (s *Store) FetchSource(ctx context.Context, id int) (types.Source, error) {
	q := database.NewQuery(s.db.Dialect)
	query := "SELECT * FROM sf.source_parameters WHERE id = " + q.Arg(id)

	rows, err := s.db.QueryContext(ctx, query, q.Args()...)
	if err != nil {
		return types.Source{}, fmt.Errorf("fetch source %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return types.Source{}, fmt.Errorf("fetch source %d: %w", id, err)
		}
		return types.Source{}, fmt.Errorf("%w: %d", types.ErrSourceNotFound, id)
	}

	names, err := rows.Columns()
	if err != nil {
		return types.Source{}, err
	}
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return types.Source{}, fmt.Errorf("scan source %d: %w", id, err)
	}

	row := make(map[string]any, len(names))
	for i, n := range names {
		row[strings.ToLower(n)] = values[i]
	}
	return decodeSource(id, row)
}

func decodeSource(id int, row map[string]any) (types.Source, error) {
	src := types.Source{ID: id, DatabaseName: asString(row["database_name"])}
	if src.DatabaseName == "" {
		return types.Source{}, fmt.Errorf("source %d: database_name is empty", id)
	}

	var caps types.CapabilitySet
	for col, v := range row {
		c, ok := types.CapabilityForColumn(col)
		if ok && asBool(v) {
			caps = caps.With(c)
		}
	}
	src.Capabilities = caps

	if caps.Has(types.StudyIEC) {
		iec, err := types.ParseIECStorage(asString(row["study_iec_storage_type"]))
		if err != nil {
			return types.Source{}, fmt.Errorf("source %d: %w", id, err)
		}
		src.IEC = iec
	}
	return src, nil
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int32:
		return x != 0
	case int:
		return x != 0
	case []byte:
		return parseBool(string(x))
	case string:
		return parseBool(x)
	default:
		return false
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "t" {
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// ValidateSources checks every id before any run starts and returns the
// missing ones joined into one error.
func (s *Store) ValidateSources(ctx context.Context, ids []int) error {
	var errs []error
	for _, id := range ids {
		ok, err := s.SourceExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", types.ErrSourceNotFound, id))
		}
	}
	return errors.Join(errs...)
}
