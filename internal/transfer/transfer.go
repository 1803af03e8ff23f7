// Package transfer copies staging rows (sd) into the normalized tables
// (ad) of one source database. Each table is copied with chunked
// INSERT ... SELECT statements whose offsets come only from the progress
// of the current invocation.
package transfer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Observer receives transfer progress.
type Observer interface {
	ChunkCommitted(sourceID int, table string, rows int64)
}

// Options configures an Engine.
type Options struct {
	Harvest  types.Harvest
	Batch    types.TransferConfig
	Observer Observer
}

// Result is the outcome of one table transfer.
type Result struct {
	Table  string
	Rows   int64
	Chunks int
}

// Engine transfers the tables of one source.
type Engine struct {
	db   *database.DB
	src  types.Source
	opts Options
	log  *zap.Logger
}

// NewEngine returns an Engine for src over its source database.
func NewEngine(db *database.DB, src types.Source, opts Options, log *zap.Logger) *Engine {
	if opts.Harvest.Type == 0 {
		opts.Harvest.Type = types.HarvestAll
	}
	return &Engine{db: db, src: src, opts: opts, log: log}
}

// TransferTable looks name up and transfers it. Unknown tables and tables
// the source does not carry are rejected before any statement runs.
func (e *Engine) TransferTable(ctx context.Context, name string) (Result, error) {
	spec, err := catalog.Lookup(name)
	if err != nil {
		return Result{Table: name}, err
	}
	if !e.applies(spec) {
		return Result{Table: name}, fmt.Errorf("%w: %s for source %d", types.ErrCapabilityMismatch, name, e.src.ID)
	}
	return e.Transfer(ctx, spec)
}

// TransferAll transfers tables in order and stops at the first failure.
// Results of the tables completed before the failure are returned with it.
func (e *Engine) TransferAll(ctx context.Context, tables []types.TableSpec) ([]Result, error) {
	var out []Result
	for _, t := range tables {
		r, err := e.Transfer(ctx, t)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Transfer counts the eligible staging rows of spec, clears the
// normalized rows they replace, then copies them chunk by chunk. Each
// chunk commits on its own; a failing chunk leaves earlier chunks in place
// and returns a *types.TransferError.
func (e *Engine) Transfer(ctx context.Context, spec types.TableSpec) (Result, error) {
	res := Result{Table: spec.Name}
	log := e.log.With(zap.Int("source_id", e.src.ID), zap.String("table", spec.Name))

	total, err := e.count(ctx, spec)
	if err != nil {
		log.Error("count failed", zap.Error(err))
		return res, &types.TransferError{Table: spec.Name, Chunk: -1, Err: err}
	}
	if err := e.clear(ctx, spec); err != nil {
		log.Error("clear failed", zap.String("sqlstate_class", database.ErrorClass(err)), zap.Error(err))
		return res, &types.TransferError{Table: spec.Name, Chunk: -1, Err: err}
	}
	if total == 0 {
		log.Debug("no eligible rows")
		return res, nil
	}

	batch := e.opts.Batch.BatchSizeFor(spec.Name, spec.BatchSize)
	for _, c := range PlanChunks(total, batch) {
		stmt, args := e.chunkStatement(spec, c)
		n, err := e.execChunk(ctx, stmt, args)
		if err != nil {
			log.Error("chunk failed",
				zap.Int("chunk", c.Index),
				zap.Int64("committed", res.Rows),
				zap.String("statement", database.StatementKind(stmt)),
				zap.String("sqlstate_class", database.ErrorClass(err)),
				zap.Error(err))
			return res, &types.TransferError{Table: spec.Name, Chunk: c.Index, Committed: res.Rows, Err: err}
		}
		res.Rows += n
		res.Chunks++
		if e.opts.Observer != nil {
			e.opts.Observer.ChunkCommitted(e.src.ID, spec.Name, n)
		}
		if c.Limit > 0 {
			log.Debug("chunk committed", zap.Int("chunk", c.Index), zap.Int64("offset", c.Offset), zap.Int64("rows", n))
		}
	}

	log.Info("table transferred", zap.Int64("rows", res.Rows), zap.Int("chunks", res.Chunks))
	return res, nil
}

func (e *Engine) applies(spec types.TableSpec) bool {
	for _, t := range catalog.ForSource(e.src) {
		if t.Name == spec.Name {
			return true
		}
	}
	return false
}

func (e *Engine) count(ctx context.Context, spec types.TableSpec) (int64, error) {
	q := database.NewQuery(e.db.Dialect)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s s", types.NamespaceStaging, spec.Name)
	if cond := eligible(q, e.src, e.opts.Harvest, spec, "s."); cond != "" {
		query += " WHERE " + cond
	}
	var n int64
	if err := e.db.QueryRowContext(ctx, query, q.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s.%s: %w", types.NamespaceStaging, spec.Name, err)
	}
	return n, nil
}

// clear removes the normalized rows that the eligible staging rows
// replace, so that a rerun converges to the same row counts.
func (e *Engine) clear(ctx context.Context, spec types.TableSpec) error {
	q := database.NewQuery(e.db.Dialect)
	stmt := fmt.Sprintf("DELETE FROM %s.%s", types.NamespaceNormalized, spec.Name)
	if cond := eligible(q, e.src, e.opts.Harvest, spec, ""); cond != "" {
		stmt += " WHERE " + cond
	}
	if _, err := e.db.ExecContext(ctx, stmt, q.Args()...); err != nil {
		return fmt.Errorf("clear %s.%s: %w", types.NamespaceNormalized, spec.Name, err)
	}
	return nil
}

func (e *Engine) chunkStatement(spec types.TableSpec, c Chunk) (string, []any) {
	fields := spec.Fields()
	source := make([]string, len(fields))
	for i, f := range fields {
		source[i] = "s." + f
	}

	q := database.NewQuery(e.db.Dialect)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s.%s (%s)\nSELECT %s\nFROM %s.%s s",
		types.NamespaceNormalized, spec.Name, strings.Join(fields, ", "),
		strings.Join(source, ", "),
		types.NamespaceStaging, spec.Name)
	if cond := eligible(q, e.src, e.opts.Harvest, spec, "s."); cond != "" {
		b.WriteString("\nWHERE " + cond)
	}
	if c.Limit > 0 {
		fmt.Fprintf(&b, "\nORDER BY s.id\nLIMIT %s OFFSET %s", q.Arg(c.Limit), q.Arg(c.Offset))
	}
	return b.String(), q.Args()
}

func (e *Engine) execChunk(ctx context.Context, stmt string, args []any) (int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	r, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
