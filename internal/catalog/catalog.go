// Package catalog holds the static table catalog: for every normalized table
// its governing capability, its columns, the ordered transfer field list and
// its batch policy. The schema builder and the transfer engine both read
// from here, so the created shape and the copied projection cannot drift.
package catalog

import (
	"fmt"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Natural join keys.
const (
	StudyKey  = "sd_sid"
	ObjectKey = "sd_oid"
)

// Core table names referenced outside the catalog.
const (
	TableStudies     = "studies"
	TableDataObjects = "data_objects"
)

// iecTemplate is the column set shared by every IEC partition.
var iecTemplate = cols(types.EntityStudy,
	integer("seq_num"),
	integer("iec_type_id"),
	text("split_type"),
	notNull(text("leader")),
	integer("indent_level"),
	text("sequence_string"),
	text("iec_text"),
	types.Column{Name: "iec_class_id", Type: types.ColInt},
	types.Column{Name: "iec_class", Type: types.ColText},
	types.Column{Name: "iec_parsed_text", Type: types.ColText},
	codedOn,
)

// studyTables lists the non-IEC study tables in declared order: core
// tables first, then the optional ones.
var studyTables = []types.TableSpec{
	{
		Name: TableStudies, Entity: types.EntityStudy, Core: true, BatchSize: types.StudiesBatchSize,
		Columns: cols(types.EntityStudy,
			text("display_title"),
			withDefault(text("title_lang_code"), "'en'"),
			text("brief_description"),
			text("data_sharing_statement"),
			integer("study_start_year"),
			integer("study_start_month"),
			integer("study_type_id"),
			integer("study_status_id"),
			text("study_enrolment"),
			integer("study_gender_elig_id"),
			integer("min_age"),
			integer("min_age_units_id"),
			integer("max_age"),
			integer("max_age_units_id"),
			integer("iec_level"),
			timestamp("datetime_of_data_fetch"),
		),
	},
	{
		Name: "study_identifiers", Entity: types.EntityStudy, Core: true,
		Columns: cols(types.EntityStudy,
			text("identifier_value"),
			integer("identifier_type_id"),
			integer("source_id"),
			text("source"),
			text("identifier_date"),
			text("identifier_link"),
			types.Column{Name: "source_ror_id", Type: types.ColText},
			codedOn,
		),
	},
	{
		Name: "study_titles", Entity: types.EntityStudy, Core: true,
		Columns: cols(types.EntityStudy,
			integer("title_type_id"),
			text("title_text"),
			withDefault(notNull(text("lang_code")), "'en'"),
			withDefault(notNull(integer("lang_usage_id")), "11"),
			boolean("is_default"),
			text("comments"),
		),
	},
	{
		Name: "study_topics", Entity: types.EntityStudy, Capability: types.StudyTopics,
		Columns: cols(types.EntityStudy,
			integer("topic_type_id"),
			text("original_value"),
			integer("original_ct_type_id"),
			text("original_ct_code"),
			text("mesh_code"),
			text("mesh_value"),
			codedOn,
		),
	},
	{
		Name: "study_conditions", Entity: types.EntityStudy, Capability: types.StudyConditions,
		Columns: cols(types.EntityStudy,
			text("original_value"),
			integer("original_ct_type_id"),
			text("original_ct_code"),
			text("icd_code"),
			text("icd_name"),
			codedOn,
		),
	},
	{
		Name: "study_features", Entity: types.EntityStudy, Capability: types.StudyFeatures,
		Columns: cols(types.EntityStudy,
			integer("feature_type_id"),
			integer("feature_value_id"),
		),
	},
	{
		Name: "study_people", Entity: types.EntityStudy, Capability: types.StudyPeople,
		Columns: cols(types.EntityStudy,
			integer("contrib_type_id"),
			text("person_given_name"),
			text("person_family_name"),
			text("person_full_name"),
			text("orcid_id"),
			text("person_affiliation"),
			integer("organisation_id"),
			text("organisation_name"),
			types.Column{Name: "organisation_ror_id", Type: types.ColText},
			codedOn,
		),
	},
	{
		Name: "study_organisations", Entity: types.EntityStudy, Capability: types.StudyOrganisations,
		Columns: cols(types.EntityStudy,
			integer("contrib_type_id"),
			integer("organisation_id"),
			text("organisation_name"),
			types.Column{Name: "organisation_ror_id", Type: types.ColText},
			codedOn,
		),
	},
	{
		Name: "study_references", Entity: types.EntityStudy, Capability: types.StudyReferences,
		Columns: cols(types.EntityStudy,
			text("pmid"),
			text("citation"),
			text("doi"),
			integer("type_id"),
			text("comments"),
		),
	},
	{
		Name: "study_relationships", Entity: types.EntityStudy, Capability: types.StudyRelationships,
		ExtraIndexes: []string{"target_sd_sid"},
		Columns: cols(types.EntityStudy,
			integer("relationship_type_id"),
			text("target_sd_sid"),
		),
	},
	{
		Name: "study_links", Entity: types.EntityStudy, Capability: types.StudyLinks,
		Columns: cols(types.EntityStudy,
			text("link_label"),
			text("link_url"),
		),
	},
	{
		Name: "study_countries", Entity: types.EntityStudy, Capability: types.StudyCountries,
		Columns: cols(types.EntityStudy,
			integer("country_id"),
			text("country_name"),
			integer("status_id"),
			codedOn,
		),
	},
	{
		Name: "study_locations", Entity: types.EntityStudy, Capability: types.StudyLocations,
		Columns: cols(types.EntityStudy,
			integer("facility_org_id"),
			text("facility"),
			types.Column{Name: "facility_ror_id", Type: types.ColText},
			integer("city_id"),
			text("city_name"),
			integer("country_id"),
			text("country_name"),
			integer("status_id"),
			codedOn,
		),
	},
	{
		Name: "study_ipd_available", Entity: types.EntityStudy, Capability: types.StudyIPDAvailable,
		Columns: cols(types.EntityStudy,
			text("ipd_id"),
			text("ipd_type"),
			text("ipd_url"),
			text("ipd_comment"),
		),
	},
}

// objectTables lists the object tables in declared order.
var objectTables = []types.TableSpec{
	{
		Name: TableDataObjects, Entity: types.EntityObject, Core: true,
		ExtraIndexes: []string{StudyKey},
		Columns: cols(types.EntityObject,
			text(StudyKey),
			text("title"),
			text("version"),
			text("display_title"),
			text("doi"),
			integer("doi_status_id"),
			integer("publication_year"),
			integer("object_class_id"),
			integer("object_type_id"),
			integer("managing_org_id"),
			text("managing_org"),
			types.Column{Name: "managing_org_ror_id", Type: types.ColText},
			text("lang_code"),
			integer("access_type_id"),
			text("access_details"),
			text("access_details_url"),
			timestamp("url_last_checked"),
			integer("eosc_category"),
			boolean("add_study_contribs"),
			boolean("add_study_topics"),
			timestamp("datetime_of_data_fetch"),
			codedOn,
		),
	},
	{
		Name: "object_titles", Entity: types.EntityObject, Core: true,
		Columns: cols(types.EntityObject,
			integer("title_type_id"),
			text("title_text"),
			withDefault(notNull(text("lang_code")), "'en'"),
			withDefault(notNull(integer("lang_usage_id")), "11"),
			boolean("is_default"),
			text("comments"),
		),
	},
	{
		Name: "object_datasets", Entity: types.EntityObject, Capability: types.ObjectDatasets,
		Columns: cols(types.EntityObject,
			integer("record_keys_type_id"),
			text("record_keys_details"),
			integer("deident_type_id"),
			boolean("deident_direct"),
			boolean("deident_hipaa"),
			boolean("deident_dates"),
			boolean("deident_nonarr"),
			boolean("deident_kanon"),
			text("deident_details"),
			integer("consent_type_id"),
			boolean("consent_noncommercial"),
			boolean("consent_geog_restrict"),
			boolean("consent_research_type"),
			boolean("consent_genetic_only"),
			boolean("consent_no_methods"),
			text("consent_details"),
		),
	},
	{
		Name: "object_dates", Entity: types.EntityObject, Capability: types.ObjectDates,
		Columns: cols(types.EntityObject,
			integer("date_type_id"),
			boolean("date_is_range"),
			text("date_as_string"),
			integer("start_year"),
			integer("start_month"),
			integer("start_day"),
			integer("end_year"),
			integer("end_month"),
			integer("end_day"),
			text("details"),
		),
	},
	{
		Name: "object_instances", Entity: types.EntityObject, Capability: types.ObjectInstances,
		Columns: cols(types.EntityObject,
			integer("system_id"),
			text("system"),
			text("url"),
			boolean("url_accessible"),
			timestamp("url_last_checked"),
			integer("resource_type_id"),
			text("resource_size"),
			text("resource_size_units"),
			text("resource_comments"),
			codedOn,
		),
	},
	{
		Name: "object_people", Entity: types.EntityObject, Capability: types.ObjectPeople,
		Columns: cols(types.EntityObject,
			integer("contrib_type_id"),
			text("person_given_name"),
			text("person_family_name"),
			text("person_full_name"),
			text("orcid_id"),
			text("person_affiliation"),
			integer("organisation_id"),
			text("organisation_name"),
			types.Column{Name: "organisation_ror_id", Type: types.ColText},
			codedOn,
		),
	},
	{
		Name: "object_organisations", Entity: types.EntityObject, Capability: types.ObjectOrganisations,
		Columns: cols(types.EntityObject,
			integer("contrib_type_id"),
			integer("organisation_id"),
			text("organisation_name"),
			types.Column{Name: "organisation_ror_id", Type: types.ColText},
			codedOn,
		),
	},
	{
		Name: "object_topics", Entity: types.EntityObject, Capability: types.ObjectTopics,
		Columns: cols(types.EntityObject,
			integer("topic_type_id"),
			text("original_value"),
			integer("original_ct_type_id"),
			text("original_ct_code"),
			text("mesh_code"),
			text("mesh_value"),
			codedOn,
		),
	},
	{
		Name: "object_comments", Entity: types.EntityObject, Capability: types.ObjectComments,
		Columns: cols(types.EntityObject,
			text("ref_type"),
			text("ref_source"),
			text("pmid"),
			text("pmid_version"),
			text("notes"),
		),
	},
	{
		Name: "object_descriptions", Entity: types.EntityObject, Capability: types.ObjectDescriptions,
		Columns: cols(types.EntityObject,
			integer("description_type_id"),
			text("label"),
			text("description_text"),
			text("lang_code"),
		),
	},
	{
		Name: "object_identifiers", Entity: types.EntityObject, Capability: types.ObjectIdentifiers,
		Columns: cols(types.EntityObject,
			text("identifier_value"),
			integer("identifier_type_id"),
			integer("source_id"),
			text("source"),
			types.Column{Name: "source_ror_id", Type: types.ColText},
			text("identifier_date"),
			codedOn,
		),
	},
	{
		Name: "object_db_links", Entity: types.EntityObject, Capability: types.ObjectDBLinks,
		Columns: cols(types.EntityObject,
			integer("db_sequence"),
			text("db_name"),
			text("id_in_db"),
		),
	},
	{
		Name: "object_publication_types", Entity: types.EntityObject, Capability: types.ObjectPublicationTypes,
		Columns: cols(types.EntityObject,
			text("type_name"),
		),
	},
	{
		Name: "journal_details", Entity: types.EntityObject, Capability: types.JournalDetails,
		Columns: cols(types.EntityObject,
			text("pmid"),
			text("journal_title"),
			text("pissn"),
			text("eissn"),
			integer("publisher_id"),
			text("publisher"),
			text("publisher_suffix"),
		),
	},
	{
		Name: "object_relationships", Entity: types.EntityObject, Capability: types.ObjectRelationships,
		ExtraIndexes: []string{"target_sd_oid"},
		Columns: cols(types.EntityObject,
			integer("relationship_type_id"),
			text("target_sd_oid"),
		),
	},
	{
		Name: "object_rights", Entity: types.EntityObject, Capability: types.ObjectRights,
		Columns: cols(types.EntityObject,
			text("rights_name"),
			text("rights_uri"),
			text("comments"),
		),
	},
}

// byName indexes every declared table, IEC partitions of all shapes included.
var byName = func() map[string]types.TableSpec {
	m := make(map[string]types.TableSpec)
	for _, t := range studyTables {
		m[t.Name] = finish(t)
	}
	for _, p := range types.AllIECPartitions() {
		m[p] = iecSpec(p)
	}
	for _, t := range objectTables {
		m[t.Name] = finish(t)
	}
	return m
}()

// finish fills in the defaults shared by every spec.
func finish(t types.TableSpec) types.TableSpec {
	if t.BatchSize == 0 {
		t.BatchSize = types.DefaultBatchSize
	}
	if t.JoinKey == "" {
		t.JoinKey = StudyKey
		if t.Entity == types.EntityObject {
			t.JoinKey = ObjectKey
		}
	}
	return t
}

func iecSpec(name string) types.TableSpec {
	return finish(types.TableSpec{
		Name:       name,
		Entity:     types.EntityStudy,
		Capability: types.StudyIEC,
		Columns:    iecTemplate,
	})
}

// Lookup returns the spec for a table name. Unknown names return
// types.ErrUnknownTable.
func Lookup(name string) (types.TableSpec, error) {
	t, ok := byName[name]
	if !ok {
		return types.TableSpec{}, fmt.Errorf("%w: %q", types.ErrUnknownTable, name)
	}
	return t, nil
}

// Declared returns every table the catalog knows, in declared order,
// including the IEC partitions of every shape. Rebuild drops all of them.
func Declared() []types.TableSpec {
	var out []types.TableSpec
	for _, t := range studyTables {
		out = append(out, byName[t.Name])
	}
	for _, p := range types.AllIECPartitions() {
		out = append(out, byName[p])
	}
	for _, t := range objectTables {
		out = append(out, byName[t.Name])
	}
	return out
}

// ForSource returns the tables that apply to src in declared order: study
// tables (when the source has them) followed by the IEC partitions of the
// active shape, then object tables.
func ForSource(src types.Source) []types.TableSpec {
	var out []types.TableSpec
	for _, t := range studyTables {
		if spec := byName[t.Name]; spec.GatedBy(src) {
			out = append(out, spec)
		}
	}
	for _, p := range src.ActiveIEC().Partitions() {
		out = append(out, byName[p])
	}
	for _, t := range objectTables {
		if spec := byName[t.Name]; spec.GatedBy(src) {
			out = append(out, spec)
		}
	}
	return out
}

// ForEntity filters ForSource down to one entity family.
func ForEntity(src types.Source, e types.Entity) []types.TableSpec {
	var out []types.TableSpec
	for _, t := range ForSource(src) {
		if t.Entity == e {
			out = append(out, t)
		}
	}
	return out
}

// Governs returns the tables whose presence depends on capability c.
func Governs(c types.Capability) []string {
	var out []string
	for _, t := range Declared() {
		if !t.Core && t.Capability == c {
			out = append(out, t.Name)
		}
	}
	return out
}
