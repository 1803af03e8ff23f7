package transfer

import (
	"fmt"

	"github.com/mesh-intelligence/mdrimport/internal/bridge"
	"github.com/mesh-intelligence/mdrimport/internal/catalog"
	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// eligible returns the WHERE condition selecting the rows of table t that
// the harvest makes eligible, or "" when every row is. prefix qualifies
// the table's own columns ("s." for the staging alias, "" for an
// unaliased target).
func eligible(q *database.Query, src types.Source, h types.Harvest, t types.TableSpec, prefix string) string {
	if h.Type == types.HarvestAll {
		return ""
	}

	if t.Entity == types.EntityStudy {
		return fmt.Sprintf("%s%s IN (%s)", prefix, catalog.StudyKey, records(q, bridge.StudyRecords, src.ID, h))
	}

	if !src.HasStudyTables() {
		return fmt.Sprintf("%s%s IN (%s)", prefix, catalog.ObjectKey, records(q, bridge.ObjectRecords, src.ID, h))
	}

	// Objects of a study source follow their parent study.
	studies := records(q, bridge.StudyRecords, src.ID, h)
	if t.Name == catalog.TableDataObjects {
		return fmt.Sprintf("%s%s IN (%s)", prefix, catalog.StudyKey, studies)
	}
	return fmt.Sprintf("%s%s IN (SELECT o.%s FROM %s.%s o WHERE o.%s IN (%s))",
		prefix, catalog.ObjectKey,
		catalog.ObjectKey, types.NamespaceStaging, catalog.TableDataObjects, catalog.StudyKey,
		studies)
}

// records selects the keys of the bridged monitor records that the
// harvest marks as changed.
func records(q *database.Query, table string, sourceID int, h types.Harvest) string {
	cond := fmt.Sprintf("k.source_id = %s AND k.local_path IS NOT NULL", q.Arg(sourceID))
	switch h.Type {
	case types.HarvestRevisedSince:
		cond += fmt.Sprintf(" AND %s >= %s", q.Dialect().TimeValue("k.last_revised"), q.Time(h.Cutoff))
	case types.HarvestNotYetComplete:
		cond += " AND k.assume_complete IS NULL"
	}
	return fmt.Sprintf("SELECT k.sd_id FROM %s.%s k WHERE %s", types.NamespaceBridge, table, cond)
}
