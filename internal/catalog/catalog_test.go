package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"repe/internal/server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	reqs, err := Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, reqs)

	names := make(map[string]core.CreateExerciseRequest, len(reqs))
	for _, r := range reqs {
		assert.NoError(t, core.ValidateStruct(&r), r.Name)
		names[r.Name] = r
	}

	squat, ok := names["Back Squat"]
	require.True(t, ok)
	assert.Equal(t, "legs", squat.Category)
	assert.Equal(t, []string{"barbell", "rack"}, squat.Equipment)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		want    []core.CreateExerciseRequest
	}{
		{
			name: "defaults category",
			doc:  "exercises:\n  - name: \" Sled Push \"\n",
			want: []core.CreateExerciseRequest{{Name: "Sled Push", Category: "other"}},
		},
		{name: "missing name", doc: "exercises:\n  - category: legs\n", wantErr: true},
		{name: "duplicate ignoring case", doc: "exercises:\n  - name: Dip\n  - name: dip\n", wantErr: true},
		{name: "not yaml", doc: "exercises: [", wantErr: true},
		{name: "empty", doc: "", want: []core.CreateExerciseRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gym.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exercises:\n  - name: Turkish Get-Up\n    category: core\n    equipment: [kettlebell]\n"), 0o644))

	reqs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"kettlebell"}, reqs[0].Equipment)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
