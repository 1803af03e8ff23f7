package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

func TestEveryCapabilityGovernsATable(t *testing.T) {
	for _, c := range types.AllCapabilities() {
		if c == types.StudyTables {
			continue
		}
		assert.NotEmpty(t, Governs(c), "capability %s governs no table", c)
	}
}

func TestDeclaredNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, spec := range Declared() {
		assert.False(t, seen[spec.Name], "duplicate table %s", spec.Name)
		seen[spec.Name] = true
	}
}

func TestSpecsAreWellFormed(t *testing.T) {
	for _, spec := range Declared() {
		t.Run(spec.Name, func(t *testing.T) {
			fields := spec.Fields()
			require.NotEmpty(t, fields)
			assert.Equal(t, spec.JoinKey, fields[0], "join key leads the field list")
			assert.Positive(t, spec.BatchSize)

			names := make(map[string]bool)
			for _, c := range spec.Columns {
				assert.False(t, names[c.Name], "duplicate column %s", c.Name)
				names[c.Name] = true
			}
			for _, ix := range spec.ExtraIndexes {
				assert.True(t, names[ix], "index on unknown column %s", ix)
			}
		})
	}
}

func TestBatchPolicy(t *testing.T) {
	studies, err := Lookup(TableStudies)
	require.NoError(t, err)
	assert.Equal(t, 100_000, studies.BatchSize)

	titles, err := Lookup("study_titles")
	require.NoError(t, err)
	assert.Equal(t, 250_000, titles.BatchSize)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("study_hobbies")
	assert.ErrorIs(t, err, types.ErrUnknownTable)
}

func TestNonCopiedColumnsStayOutOfFields(t *testing.T) {
	spec, err := Lookup("study_identifiers")
	require.NoError(t, err)
	assert.NotContains(t, spec.Fields(), "source_ror_id")
	assert.NotContains(t, spec.Fields(), "coded_on")

	iec, err := Lookup("study_iec_upto12")
	require.NoError(t, err)
	assert.Equal(t, []string{"sd_sid", "seq_num", "iec_type_id", "split_type", "leader",
		"indent_level", "sequence_string", "iec_text"}, iec.Fields())
}

func TestForSource(t *testing.T) {
	tests := []struct {
		name    string
		src     types.Source
		want    []string
		without []string
	}{
		{
			name: "objects only",
			src:  types.Source{ID: 100135, Capabilities: types.NewCapabilitySet(types.ObjectDates, types.StudyTopics)},
			want: []string{"data_objects", "object_titles", "object_dates"},
		},
		{
			name: "study core with grouped IEC",
			src: types.Source{ID: 100120,
				Capabilities: types.NewCapabilitySet(types.StudyTables, types.StudyIEC),
				IEC:          types.IECStorage{Kind: types.IECByYearGroupings}},
			want: []string{"studies", "study_identifiers", "study_titles",
				"study_iec_upto12", "study_iec_13to19", "study_iec_20on",
				"data_objects", "object_titles"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, spec := range ForSource(tt.src) {
				got = append(got, spec.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForEntity(t *testing.T) {
	src := types.Source{Capabilities: types.NewCapabilitySet(types.StudyTables, types.StudyLinks, types.ObjectRights)}
	for _, spec := range ForEntity(src, types.EntityStudy) {
		assert.Equal(t, types.EntityStudy, spec.Entity)
	}
	objects := ForEntity(src, types.EntityObject)
	require.Len(t, objects, 3)
	assert.Equal(t, "object_rights", objects[2].Name)
}
