//go:build !windows

package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("DOCK_APPS", "/srv/apps")

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/apps", filepath.Join(home, "apps")},
		{"$DOCK_APPS/viz", "/srv/apps/viz"},
		{"/already/abs", "/already/abs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Expand("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestNormalizeForLookup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	a, err := NormalizeForLookup(link)
	require.NoError(t, err)
	b, err := NormalizeForLookup(target)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	missing, err := NormalizeForLookup(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(missing))
}
