package types

// Default batch sizes for chunked transfers.
const (
	DefaultBatchSize = 250_000
	StudiesBatchSize = 100_000
)

// Namespaces used inside a source database.
const (
	NamespaceStaging    = "sd"
	NamespaceNormalized = "ad"
	NamespaceBridge     = "mn"
	NamespaceMonitor    = "sf"
)

// ColumnType is the engine-neutral type of a normalized column. Dialects
// render it to the engine's type name.
type ColumnType uint8

const (
	ColText ColumnType = iota
	ColInt
	ColBool
	ColTimestamp
)

// Column defines one normalized column.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	Default string // SQL literal, empty for none
	// Copied marks columns projected from staging. Columns that are only
	// filled later in the pipeline (e.g. coded_on) are created but not copied.
	Copied bool
}

// TableSpec maps one staging table to its normalized counterpart.
type TableSpec struct {
	Name       string
	Entity     Entity
	Capability Capability
	// Core tables are always present for their entity family; Capability
	// is ignored for them except that study core tables need StudyTables.
	Core         bool
	Columns      []Column
	JoinKey      string
	ExtraIndexes []string
	BatchSize    int
}

// Fields returns the ordered transfer field list: the copied columns.
// The same list is used for the read projection and the insert target.
func (t TableSpec) Fields() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Copied {
			out = append(out, c.Name)
		}
	}
	return out
}

// GatedBy reports whether the table applies to a source.
func (t TableSpec) GatedBy(src Source) bool {
	if t.Entity == EntityStudy && !src.HasStudyTables() {
		return false
	}
	if t.Core {
		return true
	}
	return src.Has(t.Capability)
}
