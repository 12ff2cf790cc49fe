package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, s *Store, p, content string) {
	t.Helper()
	w, err := s.Create(p)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestListDepth(t *testing.T) {
	s, err := Open(t.TempDir(), 1)
	require.NoError(t, err)

	writeFile(t, s, "/b.txt", "hello")
	writeFile(t, s, "/a/x.bin", "123")
	writeFile(t, s, "/a/deep/deeper/y", "1")

	entries, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Path: "/a/", Dir: true},
		{Path: "/a/deep/", Dir: true},
		{Path: "/a/x.bin", Size: 3},
		{Path: "/b.txt", Size: 5},
	}, entries)
}

func TestCreateMakesParents(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, 5)
	require.NoError(t, err)
	writeFile(t, s, "dir/sub/file.txt", "data")

	got, err := os.ReadFile(filepath.Join(root, "dir", "sub", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	f, size, err := s.Open("/dir/sub/file.txt")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, int64(4), size)

	_, _, err = s.Open("/dir")
	assert.Error(t, err)
}

func TestRemovePrunesEmptyParents(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, 5)
	require.NoError(t, err)
	writeFile(t, s, "/a/b/c.txt", "x")
	writeFile(t, s, "/a/keep.txt", "y")

	require.NoError(t, s.Remove("/a/b/c.txt"))
	_, err = os.Stat(filepath.Join(root, "a", "b"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "a", "keep.txt"))
	assert.NoError(t, err)

	assert.Error(t, s.Remove("/"))
}

func TestRename(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, 5)
	require.NoError(t, err)
	writeFile(t, s, "/old/f.txt", "x")

	require.NoError(t, s.Rename("/old/f.txt", "/new/g.txt"))
	_, err = os.Stat(filepath.Join(root, "new", "g.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "old"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Rename("/missing", "/x"))
}

func TestEscapeRejected(t *testing.T) {
	s, err := Open(t.TempDir(), 5)
	require.NoError(t, err)
	_, err = s.Abs("/../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = s.Create("a/../../x")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestFormatAndUsage(t *testing.T) {
	s, err := Open(t.TempDir(), 5)
	require.NoError(t, err)
	writeFile(t, s, "/a/b", "12345")
	writeFile(t, s, "/c", "123")

	total, used, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), used)
	assert.Greater(t, total, used)

	require.NoError(t, s.Format())
	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, s.Mounted())
}

func TestNotMounted(t *testing.T) {
	var s *Store
	assert.False(t, s.Mounted())
	_, err := s.List()
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestContentHash(t *testing.T) {
	s, err := Open(t.TempDir(), 5)
	require.NoError(t, err)
	writeFile(t, s, "/f", "abc")
	h, err := s.ContentHash("/f")
	require.NoError(t, err)
	assert.Equal(t, "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.Equal(t, "ba7816bf8f01", ShortHash(h))
}
