package specialist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	lanes := r.Lanes()
	require.Len(t, lanes, len(knownLanes))

	for _, l := range lanes {
		assert.NotEmpty(t, l.SpecialistID, l.Key)
		if l.Key == model.LaneCategorization {
			assert.True(t, l.Enabled)
			assert.True(t, l.AllowSemantic)
			assert.True(t, l.AllowFallback)
			continue
		}
		assert.False(t, l.Enabled, l.Key)
	}
}

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errMsg  string
		wantLen int
	}{
		{
			name: "valid",
			yaml: `
lanes:
  - key: categorization
    specialist_id: core
    enabled: true
  - key: transfer
    specialist_id: transfers
    enabled: true
`,
			wantLen: 2,
		},
		{
			name:    "empty file",
			yaml:    "",
			wantLen: 0,
		},
		{
			name: "unknown lane",
			yaml: `
lanes:
  - key: travel
    enabled: true
`,
			errMsg: `unknown lane "travel"`,
		},
		{
			name: "duplicate lane",
			yaml: `
lanes:
  - key: income
  - key: income
`,
			errMsg: "registered twice",
		},
		{
			name:   "malformed yaml",
			yaml:   "lanes: [",
			errMsg: "failed to parse lane registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRegistry([]byte(tt.yaml))
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Len(t, r.Lanes(), tt.wantLen)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lanes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lanes:\n  - key: anomaly\n    specialist_id: fraud-desk\n    enabled: true\n"), 0o600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)

	lane, ok := r.Lookup(model.LaneAnomaly)
	require.True(t, ok)
	assert.Equal(t, "fraud-desk", lane.SpecialistID)
	assert.True(t, lane.Enabled)

	_, ok = r.Lookup(model.LaneCategorization)
	assert.False(t, ok)

	_, err = LoadRegistry(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read lane registry")
}

func TestRegistry_NilLookup(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup(model.LaneCategorization)
	assert.False(t, ok)
}
