package geo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamcdf/cdf-portal/internal/geo"
)

const sampleYAML = `
provinces:
  - id: p-lsk
    name: lusaka
    code: LSK
    districts:
      - id: d-lsk
        name: lusaka
        constituencies:
          - id: c-kbw
            name: kabwata
            wards:
              - id: w-kbw
                name: kabwata
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geography.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	nodes, err := geo.LoadFile(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	idx, err := geo.NewIndex(nodes)
	require.NoError(t, err)

	// Names are canonicalised at load.
	res, err := idx.Resolve("Lusaka Province", geo.LevelAny)
	require.NoError(t, err)
	assert.Equal(t, "Lusaka", res.Node.Name)

	ward, ok := idx.Get("w-kbw")
	require.True(t, ok)
	assert.Equal(t, "c-kbw", ward.ParentID)
}

func TestLoadFileRejectsMissingIDs(t *testing.T) {
	path := writeTemp(t, `
provinces:
  - name: Lusaka
`)
	_, err := geo.LoadFile(path)
	assert.ErrorIs(t, err, geo.ErrInvariant)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := geo.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
