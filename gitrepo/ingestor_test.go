package gitrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/89jobrien/code-chatter/batch"
	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/processing"
	"github.com/89jobrien/code-chatter/scratch"
)

// fakeCloner materializes a canned file tree instead of talking to git.
type fakeCloner struct {
	files map[string]string
	err   error

	mu    sync.Mutex
	calls int
}

func (f *fakeCloner) Clone(ctx context.Context, url, dir string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	for name, content := range f.files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type collectingStore struct {
	mu     sync.Mutex
	chunks []*core.Chunk
}

func (s *collectingStore) StoreChunks(ctx context.Context, chunks []*core.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func newTestIngestor(t *testing.T, cloner Cloner) (*Ingestor, *collectingStore) {
	t.Helper()

	mgr, err := scratch.NewManager(t.TempDir())
	require.NoError(t, err)

	store := &collectingStore{}
	runner, err := batch.NewRunner(processing.NewFileProcessor(), store)
	require.NoError(t, err)

	ing, err := NewIngestor(cloner, mgr, runner)
	require.NoError(t, err)
	return ing, store
}

func TestIngestProcessesTextFiles(t *testing.T) {
	cloner := &fakeCloner{files: map[string]string{
		"main.py":        "def main():\n    print('hi')\n",
		"README.md":      "# demo\n\nA tiny repo.\n",
		"logo.png":       "\x89PNG not really",
		".git/HEAD":      "ref: refs/heads/main\n",
		"node_modules/x": "left behind by a careless commit",
	}}
	ing, store := newTestIngestor(t, cloner)

	outcome, err := ing.Ingest(context.Background(), "https://github.com/acme/demo")
	require.NoError(t, err)

	// The PNG and node_modules content are filtered by the ignore patterns
	// before they ever reach the runner.
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Succeeded)
	assert.Zero(t, outcome.Skipped)
	assert.Zero(t, outcome.Failed)
	assert.NotEmpty(t, store.chunks)
}

func TestIngestRemovesCloneDirectory(t *testing.T) {
	root := t.TempDir()
	mgr, err := scratch.NewManager(root)
	require.NoError(t, err)

	store := &collectingStore{}
	runner, err := batch.NewRunner(processing.NewFileProcessor(), store)
	require.NoError(t, err)

	ing, err := NewIngestor(&fakeCloner{files: map[string]string{"a.go": "package a\n"}}, mgr, runner)
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "https://github.com/acme/demo")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestRejectsBadURL(t *testing.T) {
	cloner := &fakeCloner{}
	ing, _ := newTestIngestor(t, cloner)

	_, err := ing.Ingest(context.Background(), "ftp://example.com/repo")
	require.ErrorIs(t, err, core.ErrInvalidRepoURL)
	assert.Zero(t, cloner.calls)
}

func TestIngestPropagatesCloneFailure(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeCloner{err: ErrCloneFailed})

	_, err := ing.Ingest(context.Background(), "https://github.com/acme/demo")
	require.ErrorIs(t, err, ErrCloneFailed)
}

func TestIngestEmptyRepository(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeCloner{files: map[string]string{
		".git/HEAD": "ref: refs/heads/main\n",
	}})

	_, err := ing.Ingest(context.Background(), "https://github.com/acme/empty")
	require.ErrorIs(t, err, ErrEmptyRepository)
}

func TestIngestCleansUpAfterFailure(t *testing.T) {
	root := t.TempDir()
	mgr, err := scratch.NewManager(root)
	require.NoError(t, err)

	store := &collectingStore{}
	runner, err := batch.NewRunner(processing.NewFileProcessor(), store)
	require.NoError(t, err)

	ing, err := NewIngestor(&fakeCloner{err: errors.New("network down")}, mgr, runner)
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "https://github.com/acme/demo")
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInspectSummarizesTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.go"), []byte("package pkg\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref\n"), 0o644))

	ing, _ := newTestIngestor(t, &fakeCloner{})

	info, err := ing.Inspect(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, info.TotalFiles)
	assert.Equal(t, 2, info.TextFiles)
	assert.Equal(t, 2, info.FileTypes[".go"])
	assert.Equal(t, 1, info.FileTypes[".png"])
	assert.Contains(t, info.Directories, "pkg")
	assert.NotContains(t, info.Directories, ".git")
	assert.Positive(t, info.TotalSizeBytes)
}
