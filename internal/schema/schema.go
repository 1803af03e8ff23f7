// Package schema builds the normalized (ad) schema of a source database.
// The set of tables created is decided entirely by the source's
// capabilities; the builder never touches data.
package schema

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// addedOn is appended to every normalized table.
const addedOn = "added_on"

// Statement is one DDL statement attributed to the table it shapes.
type Statement struct {
	Table string
	SQL   string
}

// Builder rebuilds normalized tables in one source database.
type Builder struct {
	db  *database.DB
	log *zap.Logger
}

// NewBuilder returns a Builder for db.
func NewBuilder(db *database.DB, log *zap.Logger) *Builder {
	return &Builder{db: db, log: log}
}

// Plan returns the names of the tables a rebuild would create for src, in
// creation order.
func Plan(src types.Source) []string {
	specs := catalog.ForSource(src)
	names := make([]string, 0, len(specs))
	for _, t := range specs {
		names = append(names, t.Name)
	}
	return names
}

// Statements returns the ordered DDL of a rebuild for src. Every declared
// table is dropped, IEC partitions of every shape included, and only the
// tables that apply to src are recreated.
func Statements(d database.Dialect, src types.Source) []Statement {
	var out []Statement
	if s := d.CreateNamespace(types.NamespaceNormalized); s != "" {
		out = append(out, Statement{SQL: s})
	}

	create := make(map[string]bool)
	for _, name := range Plan(src) {
		create[name] = true
	}

	for _, t := range catalog.Declared() {
		out = append(out, Statement{Table: t.Name, SQL: dropTable(t.Name)})
		if !create[t.Name] {
			continue
		}
		out = append(out, Statement{Table: t.Name, SQL: createTable(d, t)})
		for _, col := range indexedColumns(t) {
			out = append(out, Statement{Table: t.Name, SQL: d.CreateIndex(types.NamespaceNormalized, t.Name, col)})
		}
	}
	return out
}

// Rebuild drops and recreates the normalized tables of src. The first
// failing statement aborts the rebuild with a *types.SchemaBuildError.
func (b *Builder) Rebuild(ctx context.Context, src types.Source) error {
	stmts := Statements(b.db.Dialect, src)
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s.SQL); err != nil {
			b.log.Error("schema statement failed",
				zap.Int("source_id", src.ID),
				zap.String("table", s.Table),
				zap.String("statement", database.StatementKind(s.SQL)),
				zap.String("sqlstate_class", database.ErrorClass(err)),
				zap.Error(err))
			return &types.SchemaBuildError{Table: s.Table, Statement: s.SQL, Err: err}
		}
	}
	b.log.Info("normalized schema rebuilt",
		zap.Int("source_id", src.ID),
		zap.Int("tables", len(Plan(src))),
		zap.Int("statements", len(stmts)))
	return nil
}

func dropTable(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", types.NamespaceNormalized, name)
}

func createTable(d database.Dialect, t types.TableSpec) string {
	defs := []string{d.IdentityColumn()}
	for _, c := range t.Columns {
		defs = append(defs, columnDef(d, c))
	}
	defs = append(defs, fmt.Sprintf("%s %s NOT NULL DEFAULT %s",
		addedOn, d.ColumnType(types.ColTimestamp), d.CurrentTimestamp()))

	return fmt.Sprintf("CREATE TABLE %s.%s (\n    %s\n)",
		types.NamespaceNormalized, t.Name, strings.Join(defs, ",\n    "))
}

func columnDef(d database.Dialect, c types.Column) string {
	def := c.Name + " " + d.ColumnType(c.Type)
	if c.NotNull {
		def += " NOT NULL"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

// indexedColumns returns the join key followed by the extra indexes.
func indexedColumns(t types.TableSpec) []string {
	cols := []string{t.JoinKey}
	for _, c := range t.ExtraIndexes {
		if c != t.JoinKey {
			cols = append(cols, c)
		}
	}
	return cols
}
