package types

import "time"

// FirstImportEventID is the id handed out when the ledger is empty.
const FirstImportEventID = 10001

// ImportEvent records the outcome of one source run in sf.import_events.
// It is created when the run opens, stamped once with the end time and
// counts, and persisted once.
type ImportEvent struct {
	ID            int
	SourceID      int
	TablesRebuilt bool
	TimeStarted   time.Time
	TimeEnded     time.Time
	StudyCount    int64
	ObjectCount   int64
	TableCounts   map[string]int64
}

// Record adds the rows moved into table to the event counts.
func (e *ImportEvent) Record(table string, rows int64) {
	if e.TableCounts == nil {
		e.TableCounts = make(map[string]int64)
	}
	e.TableCounts[table] += rows
	switch table {
	case "studies":
		e.StudyCount += rows
	case "data_objects":
		e.ObjectCount += rows
	}
}

// Total returns the number of rows moved across all tables.
func (e *ImportEvent) Total() int64 {
	var n int64
	for _, v := range e.TableCounts {
		n += v
	}
	return n
}
