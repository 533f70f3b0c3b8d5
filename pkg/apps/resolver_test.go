package apps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/dock/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
	}
}

func newResolver(t *testing.T, opts ResolverOptions) *Resolver {
	t.Helper()
	r, err := NewResolver(opts)
	require.NoError(t, err)
	return r
}

func TestResolveGroupsByCategory(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"data-sales_dashboard",
		"data-streamlit_explorer",
		"tools-csv_cleaner",
		"tools-a-b",
		"nodelimiter",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "misc-file.txt"), []byte("x"), 0644))

	index, err := newResolver(t, ResolverOptions{FrameworkKeyword: "streamlit"}).Resolve(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"data", "tools"}, index.Categories())
	assert.Equal(t, 4, index.Len())

	assert.Equal(t, []AppDescriptor{
		{Name: "sales dashboard", Path: filepath.Join(root, "data-sales_dashboard")},
		{Name: "streamlit explorer", Path: filepath.Join(root, "data-streamlit_explorer"), Framework: true},
	}, index["data"])

	// Only the first delimiter splits.
	assert.Equal(t, "a-b", index["tools"][0].Name)
	assert.Equal(t, "csv cleaner", index["tools"][1].Name)

	_, found := index.Find(filepath.Join(root, "nodelimiter"))
	assert.False(t, found)
	assert.NotContains(t, index, "misc")
}

func TestResolveEmptyCategoryAndLabel(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "-leading", "trailing-")

	index, err := newResolver(t, ResolverOptions{}).Resolve(root)
	require.NoError(t, err)

	require.Len(t, index[""], 1)
	assert.Equal(t, "leading", index[""][0].Name)
	require.Len(t, index["trailing"], 1)
	assert.Equal(t, "", index["trailing"][0].Name)
}

func TestResolveNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(root, "missing")},
		{"regular file", file},
	}

	r := newResolver(t, ResolverOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := r.Resolve(tt.path)
			require.Error(t, err)
			assert.Nil(t, index)
			assert.True(t, errors.Is(err, errors.ErrCodeNotADirectory))
			assert.Equal(t, "Invalid folder path", errors.Message(err))
		})
	}
}

func TestResolveIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "old-report", "old-keeper", "new-report")

	r := newResolver(t, ResolverOptions{Ignore: []string{"old-*", "!old-keeper"}})
	index, err := r.Resolve(root)
	require.NoError(t, err)

	require.Len(t, index["old"], 1)
	assert.Equal(t, "keeper", index["old"][0].Name)
	assert.Len(t, index["new"], 1)
}

func TestNewResolverBadPattern(t *testing.T) {
	_, err := NewResolver(ResolverOptions{Ignore: []string{"[a-"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestResolveFollowsSymlinks(t *testing.T) {
	target := t.TempDir()
	root := t.TempDir()
	link := filepath.Join(root, "linked-app")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	index, err := newResolver(t, ResolverOptions{}).Resolve(root)
	require.NoError(t, err)
	require.Len(t, index["linked"], 1)
	assert.Equal(t, link, index["linked"][0].Path)
}

func TestDescribe(t *testing.T) {
	r := newResolver(t, ResolverOptions{FrameworkKeyword: "Streamlit"})

	d := r.Describe("/apps/viz-Streamlit_map")
	assert.Equal(t, AppDescriptor{Name: "Streamlit map", Path: "/apps/viz-Streamlit_map", Framework: true}, d)

	d = r.Describe("/apps/standalone_tool")
	assert.Equal(t, "standalone tool", d.Name)
	assert.False(t, d.Framework)
}

func TestIsFrameworkDisabled(t *testing.T) {
	r := newResolver(t, ResolverOptions{})
	assert.False(t, r.IsFramework("streamlit app"))
}
