package scratch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerRequiresRoot(t *testing.T) {
	_, err := NewManager("")
	assert.ErrorIs(t, err, ErrRootRequired)
}

func TestNewDirCreatesUniqueDirs(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	a, err := m.NewDir("upload")
	require.NoError(t, err)
	b, err := m.NewDir("upload")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path(), b.Path())
	assert.DirExists(t, a.Path())
	assert.DirExists(t, b.Path())
}

func TestDirRemoveIsIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	dir, err := m.NewDir("upload")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir.Path(), "f.txt"), []byte("x"), 0o644))
	require.NoError(t, dir.Remove())
	assert.NoDirExists(t, dir.Path())
	assert.NoError(t, dir.Remove())
}

func TestWithDirRemovesOnSuccess(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	var path string
	err = m.WithDir("repo", func(dir *Dir) error {
		path = dir.Path()
		return os.WriteFile(filepath.Join(path, "f.txt"), []byte("x"), 0o644)
	})
	require.NoError(t, err)
	assert.NoDirExists(t, path)
}

func TestWithDirRemovesOnError(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	sentinel := errors.New("worker failed")
	var path string
	err = m.WithDir("repo", func(dir *Dir) error {
		path = dir.Path()
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoDirExists(t, path)
}

func TestWithDirRemovesOnPanic(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	var path string
	assert.Panics(t, func() {
		_ = m.WithDir("repo", func(dir *Dir) error {
			path = dir.Path()
			panic("boom")
		})
	})
	assert.NoDirExists(t, path)
}

func TestJoinCreatesSubdirectories(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	dir, err := m.NewDir("upload")
	require.NoError(t, err)
	defer dir.Remove()

	dest, err := dir.Join("sub/deep/file.txt")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(dest))
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o644))
}

func TestJoinRejectsEscape(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	dir, err := m.NewDir("upload")
	require.NoError(t, err)
	defer dir.Remove()

	_, err = dir.Join("../../escape.txt")
	assert.ErrorIs(t, err, ErrPathEscapes)
}

func TestRemoveStale(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root)
	require.NoError(t, err)

	// Simulate leftovers from a previous run plus an unrelated dir.
	require.NoError(t, os.Mkdir(filepath.Join(root, "repo_deadbeef"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "repo_cafebabe"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "upload_12345678"), 0o755))

	assert.Equal(t, 2, m.RemoveStale("repo"))
	assert.NoDirExists(t, filepath.Join(root, "repo_deadbeef"))
	assert.DirExists(t, filepath.Join(root, "upload_12345678"))
	assert.Equal(t, 0, m.RemoveStale("repo"))
}
