package monitor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mdrimport/internal/fixture"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

func TestBootstrapIsIdempotent(t *testing.T) {
	env := fixture.New(t)
	require.NoError(t, env.Store.Bootstrap(context.Background()))
}

func TestFetchSource(t *testing.T) {
	env := fixture.New(t)
	ctx := context.Background()

	want := fixture.Source(100118, "ctis", "By Years",
		types.StudyTables, types.StudyIEC, types.StudyPeople, types.ObjectInstances)
	env.RegisterSource(t, want)

	got, err := env.Store.FetchSource(ctx, 100118)
	require.NoError(t, err)
	assert.Equal(t, want.DatabaseName, got.DatabaseName)
	assert.Equal(t, types.IECByYears, got.IEC.Kind)
	assert.Equal(t, want.Capabilities.List(), got.Capabilities.List())
	assert.False(t, got.Has(types.StudyTopics))
}

func TestFetchSourceNullFlagsAreFalse(t *testing.T) {
	env := fixture.New(t)
	ctx := context.Background()

	_, err := env.Monitor.Exec(`INSERT INTO sf.source_parameters (id, database_name, has_study_tables)
VALUES (100135, 'pubmed', 0)`)
	require.NoError(t, err)

	got, err := env.Store.FetchSource(ctx, 100135)
	require.NoError(t, err)
	assert.Empty(t, got.Capabilities.List())
	assert.Equal(t, types.IECNone, got.ActiveIEC().Kind)
}

func TestFetchSourceUnknownIECStorage(t *testing.T) {
	env := fixture.New(t)
	_, err := env.Monitor.Exec(`INSERT INTO sf.source_parameters
    (id, database_name, has_study_tables, has_study_iec, study_iec_storage_type)
VALUES (100200, 'odd', 1, 1, 'By Decade')`)
	require.NoError(t, err)

	_, err = env.Store.FetchSource(context.Background(), 100200)
	assert.ErrorIs(t, err, types.ErrUnknownIECStorage)
}

func TestSourceValidation(t *testing.T) {
	env := fixture.New(t)
	ctx := context.Background()
	env.RegisterSource(t, fixture.Source(100120, "ctg", ""))

	ok, err := env.Store.SourceExists(ctx, 100120)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.Store.FetchSource(ctx, 999)
	assert.ErrorIs(t, err, types.ErrSourceNotFound)

	err = env.Store.ValidateSources(ctx, []int{100120, 999, 998})
	require.ErrorIs(t, err, types.ErrSourceNotFound)
	assert.Contains(t, err.Error(), "999")
	assert.Contains(t, err.Error(), "998")
}
