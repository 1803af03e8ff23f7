package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Query accumulates bind arguments and hands out the dialect's markers
// in order.
type Query struct {
	dialect Dialect
	args    []any
}

// NewQuery returns an empty argument list for d.
func NewQuery(d Dialect) *Query {
	return &Query{dialect: d}
}

// Arg appends v and returns its placeholder.
func (q *Query) Arg(v any) string {
	q.args = append(q.args, v)
	return q.dialect.Placeholder(len(q.args))
}

// Time appends t and returns its placeholder wrapped for timestamp
// comparison.
func (q *Query) Time(t time.Time) string {
	return q.dialect.TimeValue(q.Arg(q.dialect.TimeArg(t)))
}

// Dialect returns the dialect the placeholders are rendered for.
func (q *Query) Dialect() Dialect {
	return q.dialect
}

// Args returns the bound arguments in order.
func (q *Query) Args() []any {
	return q.args
}

// ExecAll runs each statement in turn. Statements are sent one at a time
// because the extended protocol rejects multi-statement strings.
func ExecAll(ctx context.Context, db *DB, stmts []string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return &StatementError{Statement: s, Err: err}
		}
	}
	return nil
}

// StatementError carries the failing statement text.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return StatementKind(e.Statement) + ": " + e.Err.Error()
}

func (e *StatementError) Unwrap() error { return e.Err }

// StatementKind returns the leading keywords of stmt (e.g. "CREATE TABLE",
// "INSERT"), used as the statement class in logs.
func StatementKind(stmt string) string {
	fields := strings.Fields(strings.ToUpper(stmt))
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "CREATE", "DROP", "ALTER", "IMPORT":
		if len(fields) > 1 {
			if fields[1] == "UNIQUE" && len(fields) > 2 {
				return fields[0] + " " + fields[2]
			}
			return fields[0] + " " + fields[1]
		}
	}
	return fields[0]
}

// ErrorClass returns the SQLSTATE class of a PostgreSQL error (for
// example "42" for syntax and access errors), or "" for other errors.
func ErrorClass(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		return pgErr.Code[:2]
	}
	return ""
}
