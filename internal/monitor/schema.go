package monitor

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/mdrimport/internal/database"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Monitor table DDL. %[1]s is the identity column of the dialect, %[2]s
// the timestamp type and %[3]s the boolean type.
const (
	createSourceParameters = `CREATE TABLE IF NOT EXISTS sf.source_parameters (
    id INT PRIMARY KEY,
    default_name VARCHAR,
    database_name VARCHAR NOT NULL,
    study_iec_storage_type VARCHAR,
%[4]s
)`

	createSourceDataStudies = `CREATE TABLE IF NOT EXISTS sf.source_data_studies (
    %[1]s,
    source_id INT NOT NULL,
    sd_id VARCHAR NOT NULL,
    remote_url VARCHAR,
    last_revised %[2]s,
    assume_complete %[3]s,
    download_status INT,
    local_path VARCHAR,
    last_saf_id INT,
    last_downloaded %[2]s,
    last_harvest_id INT,
    last_harvested %[2]s,
    last_import_id INT,
    last_imported %[2]s
)`

	createSourceDataObjects = `CREATE TABLE IF NOT EXISTS sf.source_data_objects (
    %[1]s,
    source_id INT NOT NULL,
    sd_id VARCHAR NOT NULL,
    remote_url VARCHAR,
    last_revised %[2]s,
    assume_complete %[3]s,
    download_status INT,
    local_path VARCHAR,
    last_saf_id INT,
    last_downloaded %[2]s,
    last_harvest_id INT,
    last_harvested %[2]s,
    last_import_id INT,
    last_imported %[2]s
)`

	createHarvestEvents = `CREATE TABLE IF NOT EXISTS sf.harvest_events (
    id INT PRIMARY KEY,
    source_id INT NOT NULL,
    type_id INT NOT NULL,
    cutoff_date %[2]s,
    time_started %[2]s,
    time_ended %[2]s,
    num_records_available INT,
    num_records_harvested INT
)`

	createImportEvents = `CREATE TABLE IF NOT EXISTS sf.import_events (
    id INT PRIMARY KEY,
    source_id INT NOT NULL,
    tables_rebuilt %[3]s NOT NULL,
    time_started %[2]s NOT NULL,
    time_ended %[2]s NOT NULL,
    num_studies_imported INT NOT NULL,
    num_objects_imported INT NOT NULL,
    table_counts VARCHAR
)`
)

// Index DDL shared by both engines.
var monitorIndexes = [][2]string{
	{"source_data_studies", "source_id"},
	{"source_data_studies", "sd_id"},
	{"source_data_objects", "source_id"},
	{"source_data_objects", "sd_id"},
	{"harvest_events", "source_id"},
}

// bootstrapStatements returns the monitor schema DDL in execution order.
func bootstrapStatements(d database.Dialect) []string {
	ts := d.ColumnType(types.ColTimestamp)
	boolean := d.ColumnType(types.ColBool)

	var flags []string
	for _, c := range types.AllCapabilities() {
		flags = append(flags, fmt.Sprintf("    %s %s", c.Column(), boolean))
	}

	var stmts []string
	if s := d.CreateNamespace(types.NamespaceMonitor); s != "" {
		stmts = append(stmts, s)
	}
	for _, ddl := range []string{
		createSourceParameters,
		createSourceDataStudies,
		createSourceDataObjects,
		createHarvestEvents,
		createImportEvents,
	} {
		stmts = append(stmts, fmt.Sprintf(ddl, d.IdentityColumn(), ts, boolean, strings.Join(flags, ",\n")))
	}
	for _, ix := range monitorIndexes {
		stmts = append(stmts, ifNotExists(d.CreateIndex(types.NamespaceMonitor, ix[0], ix[1])))
	}
	return stmts
}

func ifNotExists(createIndex string) string {
	return strings.Replace(createIndex, "CREATE INDEX ", "CREATE INDEX IF NOT EXISTS ", 1)
}
