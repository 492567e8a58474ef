package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gravestone-upright", c.Default().ID)
	assert.GreaterOrEqual(t, len(c.Bases()), 3)

	urn, err := c.Lookup("urn-classic")
	require.NoError(t, err)
	assert.True(t, urn.Cylindrical)
	assert.Equal(t, 0.3, urn.Object().Thickness)

	_, err = c.Lookup("pyramid")
	assert.ErrorIs(t, err, ErrUnknownBase)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bases:
  - id: bench
    name: Memorial bench
    kind: bench
    width: 1.2
    height: 0.5
    thickness: 0.4
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Bases(), 1)
	assert.Equal(t, "Memorial bench", c.Default().Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "bases: []"},
		{"not yaml", "bases: [:"},
		{"missing id", "bases:\n  - name: x\n    thickness: 0.1"},
		{"duplicate", "bases:\n  - id: a\n    thickness: 0.1\n  - id: a\n    thickness: 0.1"},
		{"zero thickness", "bases:\n  - id: a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
