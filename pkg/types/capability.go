package types

import "strings"

// Capability names one optional table family a source may carry.
// Each capability maps to exactly one has_* column of sf.source_parameters.
type Capability uint8

// Capabilities in declared order. StudyTables gates the core study tables;
// the other study capabilities only take effect when it is present.
const (
	StudyTables Capability = iota
	StudyTopics
	StudyConditions
	StudyFeatures
	StudyPeople
	StudyOrganisations
	StudyReferences
	StudyRelationships
	StudyLinks
	StudyCountries
	StudyLocations
	StudyIPDAvailable
	StudyIEC
	ObjectDatasets
	ObjectDates
	ObjectInstances
	ObjectPeople
	ObjectOrganisations
	ObjectTopics
	ObjectComments
	ObjectDescriptions
	ObjectIdentifiers
	ObjectDBLinks
	ObjectPublicationTypes
	JournalDetails
	ObjectRelationships
	ObjectRights

	capabilityCount
)

// capabilityColumns holds the monitor column for each capability. The array
// length is tied to capabilityCount, so adding a capability without a column
// leaves an empty entry that TestCapabilityColumns reports.
var capabilityColumns = [capabilityCount]string{
	StudyTables:            "has_study_tables",
	StudyTopics:            "has_study_topics",
	StudyConditions:        "has_study_conditions",
	StudyFeatures:          "has_study_features",
	StudyPeople:            "has_study_people",
	StudyOrganisations:     "has_study_organisations",
	StudyReferences:        "has_study_references",
	StudyRelationships:     "has_study_relationships",
	StudyLinks:             "has_study_links",
	StudyCountries:         "has_study_countries",
	StudyLocations:         "has_study_locations",
	StudyIPDAvailable:      "has_study_ipd_available",
	StudyIEC:               "has_study_iec",
	ObjectDatasets:         "has_object_datasets",
	ObjectDates:            "has_object_dates",
	ObjectInstances:        "has_object_instances",
	ObjectPeople:           "has_object_people",
	ObjectOrganisations:    "has_object_organisations",
	ObjectTopics:           "has_object_topics",
	ObjectComments:         "has_object_comments",
	ObjectDescriptions:     "has_object_descriptions",
	ObjectIdentifiers:      "has_object_identifiers",
	ObjectDBLinks:          "has_object_db_links",
	ObjectPublicationTypes: "has_object_publication_types",
	JournalDetails:         "has_journal_details",
	ObjectRelationships:    "has_object_relationships",
	ObjectRights:           "has_object_rights",
}

// AllCapabilities lists every capability in declared order.
func AllCapabilities() []Capability {
	all := make([]Capability, 0, capabilityCount)
	for c := Capability(0); c < capabilityCount; c++ {
		all = append(all, c)
	}
	return all
}

// Column returns the sf.source_parameters column that carries the flag.
func (c Capability) Column() string {
	if c >= capabilityCount {
		return ""
	}
	return capabilityColumns[c]
}

// String returns the column name without its has_ prefix.
func (c Capability) String() string {
	col := c.Column()
	if col == "" {
		return "unknown"
	}
	return strings.TrimPrefix(col, "has_")
}

// IsStudy reports whether the capability belongs to the study family.
func (c Capability) IsStudy() bool {
	return c <= StudyIEC
}

// CapabilityForColumn maps a monitor column name to its capability.
func CapabilityForColumn(column string) (Capability, bool) {
	column = strings.ToLower(strings.TrimSpace(column))
	for c, col := range capabilityColumns {
		if col == column {
			return Capability(c), true
		}
	}
	return 0, false
}

// CapabilitySet is an immutable bit set of capabilities. The zero value
// has no capabilities.
type CapabilitySet uint32

// NewCapabilitySet returns a set holding the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		if c < capabilityCount {
			s |= 1 << c
		}
	}
	return s
}

// With returns a copy of the set with c added.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | NewCapabilitySet(c)
}

// Has reports whether c is in the set. Study capabilities other than
// StudyTables are only effective when StudyTables is also present.
func (s CapabilitySet) Has(c Capability) bool {
	if c >= capabilityCount {
		return false
	}
	if s&(1<<c) == 0 {
		return false
	}
	if c != StudyTables && c.IsStudy() {
		return s&(1<<StudyTables) != 0
	}
	return true
}

// List returns the effective capabilities in declared order.
func (s CapabilitySet) List() []Capability {
	var out []Capability
	for _, c := range AllCapabilities() {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
