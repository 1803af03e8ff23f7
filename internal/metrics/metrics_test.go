package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCommitted(t *testing.T) {
	m := New()
	m.ChunkCommitted(100120, "studies", 250_000)
	m.ChunkCommitted(100120, "studies", 100_000)

	assert.Equal(t, 350_000.0, testutil.ToFloat64(m.RowsTransferred.WithLabelValues("100120", "studies")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Chunks.WithLabelValues("100120", "studies")))
}

func TestRunFinished(t *testing.T) {
	m := New()
	m.RunFinished(100120, 3*time.Second, nil)
	m.RunFinished(100126, time.Second, errors.New("boom"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunDuration.WithLabelValues("100120")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunFailures.WithLabelValues("100120")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunFailures.WithLabelValues("100126")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ChunkCommitted(100120, "study_titles", 7)

	path := filepath.Join(t.TempDir(), "mdrimport.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mdrimport_rows_transferred_total{source="100120",table="study_titles"} 7`)

	require.NoError(t, m.WriteTextfile(""))
}
