// Package ledger records one import event per successful source run in
// sf.import_events and classifies the harvest that feeds a run.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// ErrEventClosed is returned when Close is called twice for one event.
var ErrEventClosed = errors.New("import event already closed")

// Ledger reads and appends import events in the monitoring store.
type Ledger struct {
	db  *database.DB
	now func() time.Time
}

// New returns a Ledger over the monitor database.
func New(db *database.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// NextEventID returns the id the next event will use: FirstImportEventID
// on an empty ledger, otherwise one past the highest recorded id.
func (l *Ledger) NextEventID(ctx context.Context) (int, error) {
	var last int
	err := l.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM sf.import_events").Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last import event id: %w", err)
	}
	if last == 0 {
		return types.FirstImportEventID, nil
	}
	return last + 1, nil
}

// Open reserves an id and stamps the start time. Nothing is written until
// Close.
func (l *Ledger) Open(ctx context.Context, sourceID int, rebuilt bool) (*types.ImportEvent, error) {
	id, err := l.NextEventID(ctx)
	if err != nil {
		return nil, err
	}
	return &types.ImportEvent{
		ID:            id,
		SourceID:      sourceID,
		TablesRebuilt: rebuilt,
		TimeStarted:   l.now(),
		TableCounts:   make(map[string]int64),
	}, nil
}

// Close stamps the end time and persists the event. An event is closed at
// most once.
func (l *Ledger) Close(ctx context.Context, ev *types.ImportEvent) error {
	if !ev.TimeEnded.IsZero() {
		return fmt.Errorf("%w: %d", ErrEventClosed, ev.ID)
	}
	ev.TimeEnded = l.now()

	counts, err := json.Marshal(ev.TableCounts)
	if err != nil {
		return fmt.Errorf("encode table counts: %w", err)
	}

	q := database.NewQuery(l.db.Dialect)
	stmt := fmt.Sprintf(`INSERT INTO sf.import_events
    (id, source_id, tables_rebuilt, time_started, time_ended,
     num_studies_imported, num_objects_imported, table_counts)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		q.Arg(ev.ID), q.Arg(ev.SourceID), q.Arg(ev.TablesRebuilt),
		q.Arg(ev.TimeStarted.UTC()), q.Arg(ev.TimeEnded.UTC()),
		q.Arg(ev.StudyCount), q.Arg(ev.ObjectCount), q.Arg(string(counts)))

	if _, err := l.db.ExecContext(ctx, stmt, q.Args()...); err != nil {
		return fmt.Errorf("store import event %d: %w", ev.ID, err)
	}
	return nil
}

// Events returns the recorded events of a source, oldest first.
func (l *Ledger) Events(ctx context.Context, sourceID int) ([]types.ImportEvent, error) {
	q := database.NewQuery(l.db.Dialect)
	query := `SELECT id, source_id, tables_rebuilt, time_started, time_ended,
    num_studies_imported, num_objects_imported, table_counts
FROM sf.import_events WHERE source_id = ` + q.Arg(sourceID) + ` ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query, q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list import events: %w", err)
	}
	defer rows.Close()

	var out []types.ImportEvent
	for rows.Next() {
		var (
			ev     types.ImportEvent
			counts sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.SourceID, &ev.TablesRebuilt, &ev.TimeStarted, &ev.TimeEnded,
			&ev.StudyCount, &ev.ObjectCount, &counts); err != nil {
			return nil, fmt.Errorf("scan import event: %w", err)
		}
		if counts.Valid && counts.String != "" {
			if err := json.Unmarshal([]byte(counts.String), &ev.TableCounts); err != nil {
				return nil, fmt.Errorf("decode table counts of event %d: %w", ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ClassifyHarvest returns the harvest of the most recently completed
// harvest event of the source. A source that was never harvested is
// treated as a full harvest.
func (l *Ledger) ClassifyHarvest(ctx context.Context, sourceID int) (types.Harvest, error) {
	q := database.NewQuery(l.db.Dialect)
	query := `SELECT type_id, cutoff_date FROM sf.harvest_events
WHERE source_id = ` + q.Arg(sourceID) + ` AND time_ended IS NOT NULL
ORDER BY ` + l.db.Dialect.TimeValue("time_ended") + ` DESC, id DESC LIMIT 1`

	var (
		typeID int
		cutoff sql.NullTime
	)
	err := l.db.QueryRowContext(ctx, query, q.Args()...).Scan(&typeID, &cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Harvest{Type: types.HarvestAll}, nil
	}
	if err != nil {
		return types.Harvest{}, fmt.Errorf("classify harvest for source %d: %w", sourceID, err)
	}
	return types.NewHarvest(typeID, cutoff.Time)
}
