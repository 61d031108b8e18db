package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowseEmptyDirectory(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	emptyDir := filepath.Join(tempDir, "empty")
	err := os.Mkdir(emptyDir, 0755)
	require.NoError(t, err)

	// macOS tempdirs live behind a symlink (/var -> /private/var).
	resolvedEmptyDir, err := filepath.EvalSymlinks(emptyDir)
	require.NoError(t, err)
	resolvedTempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	svc := NewService()
	resp, err := svc.Browse(BrowseOptions{Path: emptyDir, Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, resolvedEmptyDir, resp.CurrentPath)
	assert.Equal(t, resolvedTempDir, resp.ParentPath)
	assert.Equal(t, 0, resp.Total)
	assert.False(t, resp.HasMore)

	// Entries must serialize as [] rather than null.
	assert.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
}

func TestBrowseSortsDirectoriesFirst(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	resolvedTempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	err = os.Mkdir(filepath.Join(tempDir, "subdir"), 0755)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tempDir, "file.txt"), []byte("test"), 0644)
	require.NoError(t, err)

	svc := NewService()
	resp, err := svc.Browse(BrowseOptions{Path: tempDir, Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, resolvedTempDir, resp.CurrentPath)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)

	assert.Equal(t, "subdir", resp.Entries[0].Name)
	assert.True(t, resp.Entries[0].IsDir)
	assert.Equal(t, "file.txt", resp.Entries[1].Name)
	assert.False(t, resp.Entries[1].IsDir)
}

func TestBrowseMarksCatalogDirectories(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	catalogDir := filepath.Join(tempDir, "calibre")
	err := os.Mkdir(catalogDir, 0755)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(catalogDir, "metadata.db"), []byte("not really sqlite"), 0644)
	require.NoError(t, err)

	plainDir := filepath.Join(tempDir, "downloads")
	err = os.Mkdir(plainDir, 0755)
	require.NoError(t, err)

	svc := NewService()
	resp, err := svc.Browse(BrowseOptions{Path: tempDir, Limit: 50})
	require.NoError(t, err)

	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "calibre", resp.Entries[0].Name)
	assert.True(t, resp.Entries[0].IsCatalog)
	assert.Equal(t, "downloads", resp.Entries[1].Name)
	assert.False(t, resp.Entries[1].IsCatalog)
}

func TestBrowseHiddenAndSearchFilters(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tempDir, ".hidden"), []byte(""), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tempDir, "alpha.epub"), []byte(""), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tempDir, "beta.mobi"), []byte(""), 0644)
	require.NoError(t, err)

	svc := NewService()

	resp, err := svc.Browse(BrowseOptions{Path: tempDir, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)

	resp, err = svc.Browse(BrowseOptions{Path: tempDir, Limit: 50, ShowHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)

	resp, err = svc.Browse(BrowseOptions{Path: tempDir, Limit: 50, Search: "ALPHA"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "alpha.epub", resp.Entries[0].Name)
}

func TestBrowsePagination(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		err := os.WriteFile(filepath.Join(tempDir, name), []byte(""), 0644)
		require.NoError(t, err)
	}

	svc := NewService()
	resp, err := svc.Browse(BrowseOptions{Path: tempDir, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Entries, 2)
	assert.True(t, resp.HasMore)

	resp, err = svc.Browse(BrowseOptions{Path: tempDir, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "c.txt", resp.Entries[0].Name)
	assert.False(t, resp.HasMore)
}
