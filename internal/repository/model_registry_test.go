package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadModelRegistry(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: statistical
    base_weight: 1.0
    timeout: 50ms
  - name: trees
    base_weight: 1.2
  - name: neural
    enabled: false
`)

	reg, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	require.NoError(t, err)
	require.Len(t, reg.Models, 3)

	stat, ok := reg.Entry("statistical")
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, stat.Timeout.Std())
	assert.Equal(t, models.SchemaScalperCoreV1, stat.Schema)
	assert.True(t, stat.IsEnabled())

	neural, ok := reg.Entry("neural")
	require.True(t, ok)
	assert.False(t, neural.IsEnabled())

	weights := reg.BaseWeights()
	assert.Equal(t, map[string]float64{"statistical": 1.0, "trees": 1.2}, weights)
}

func TestLoadModelRegistryRegimes(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: statistical
    regimes: [trending, ranging]
  - name: trees
`)

	reg, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	require.NoError(t, err)

	stat, ok := reg.Entry("statistical")
	require.True(t, ok)
	assert.Equal(t, []models.RegimeLabel{models.RegimeTrending, models.RegimeRanging}, stat.RegimeLabels())

	// No declared list means valid everywhere.
	trees, ok := reg.Entry("trees")
	require.True(t, ok)
	assert.Nil(t, trees.RegimeLabels())
}

func TestLoadModelRegistryRejectsUnknownRegime(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: statistical
    regimes: [sideways]
`)

	_, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	assert.Error(t, err)
}

func TestLoadModelRegistryDefaultWeight(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: statistical
`)

	reg, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, reg.Models[0].BaseWeight)
}

func TestLoadModelRegistrySchemaMismatch(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: statistical
    schema: other_schema_v9
`)

	_, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestLoadModelRegistryDuplicateModel(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: trees
  - name: trees
`)

	_, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model")
}

func TestLoadModelRegistryRejectsUnknownModel(t *testing.T) {
	path := writeRegistry(t, `
models:
  - name: oracle
`)

	_, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	assert.Error(t, err)
}

func TestLoadModelRegistryEmpty(t *testing.T) {
	path := writeRegistry(t, "models: []\n")

	_, err := LoadModelRegistry(path, models.SchemaScalperCoreV1)
	assert.Error(t, err)
}

func TestLoadModelRegistryMissingFile(t *testing.T) {
	_, err := LoadModelRegistry(filepath.Join(t.TempDir(), "absent.yaml"), models.SchemaScalperCoreV1)
	assert.Error(t, err)
}
