package dependencies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

func TestDefaultManifestVariants(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	base, err := m.Resolve(VariantBase)
	require.NoError(t, err)
	assert.Equal(t, []string{"dash", "dash-table", "plotly", "pandas", "numpy"}, base)

	cloud, err := m.Resolve(VariantCloud)
	require.NoError(t, err)
	assert.Equal(t, []string{"dash", "dash-table", "plotly", "pandas", "numpy", "boto3", "python-dotenv"}, cloud)

	def, err := m.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, base, def)

	assert.Equal(t, []string{"base", "cloud"}, m.VariantNames())
}

func TestResolveUnknownVariant(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	_, err = m.Resolve("gpu")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidManifest)
	assert.Contains(t, err.Error(), "gpu")
}

func TestParseInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "no packages",
			yaml:    "groups: {core: x}\nvariants: {base: [core]}\n",
			wantMsg: "no packages",
		},
		{
			name: "duplicate package",
			yaml: `groups: {core: x}
packages:
  - {name: dash, group: core}
  - {name: dash, group: core}
variants: {base: [core]}
`,
			wantMsg: "declared twice",
		},
		{
			name: "package in unknown group",
			yaml: `groups: {core: x}
packages:
  - {name: dash, group: gpu}
variants: {base: [core]}
`,
			wantMsg: "unknown group",
		},
		{
			name: "variant with unknown group",
			yaml: `groups: {core: x}
packages:
  - {name: dash, group: core}
variants: {base: [core, extra]}
`,
			wantMsg: "unknown group \"extra\"",
		},
		{
			name: "default variant missing",
			yaml: `default_variant: full
groups: {core: x}
packages:
  - {name: dash, group: core}
variants: {base: [core]}
`,
			wantMsg: "default variant",
		},
		{
			name:    "unknown field",
			yaml:    "pakages: []\n",
			wantMsg: "invalid dependency manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidManifest)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`default_variant: minimal
groups: {core: runtime}
packages:
  - {name: pandas, group: core}
variants: {minimal: [core]}
`), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	names, err := m.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, []string{"pandas"}, names)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	m, err = Load("")
	require.NoError(t, err)
	assert.Len(t, m.Entries, 7)
}
