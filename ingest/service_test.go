package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/89jobrien/code-chatter/ai"
	"github.com/89jobrien/code-chatter/ai/mock"
	"github.com/89jobrien/code-chatter/core"
	badgerstore "github.com/89jobrien/code-chatter/storage/badger"
	"github.com/89jobrien/code-chatter/upload"
)

// blockingCloner parks until its context is cancelled, to exercise task
// cancellation mid-clone.
type blockingCloner struct {
	started chan struct{}
}

func (c *blockingCloner) Clone(ctx context.Context, url, dir string) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

// treeCloner materializes a canned file tree.
type treeCloner struct {
	files map[string]string
}

func (c *treeCloner) Clone(ctx context.Context, url, dir string) error {
	for name, content := range c.files {
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

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return newTestServiceWith(t, nil, mock.NewMockProvider(), opts...)
}

func newTestServiceWith(t *testing.T, mutateCfg func(*Config), provider ai.AIProvider, opts ...Option) *Service {
	t.Helper()

	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	cfg := DefaultConfig()
	cfg.ScratchRoot = t.TempDir()
	cfg.DBPath = ""
	if mutateCfg != nil {
		mutateCfg(&cfg)
	}

	svc, err := NewService(cfg, repo, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func waitForTerminal(t *testing.T, svc *Service, id string) core.Task {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		task, ok := svc.GetTask(id)
		require.True(t, ok)
		if task.Status.IsTerminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal status", id)
	return core.Task{}
}

func TestSubmitFileBatchProcessesUploads(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "a.py", Content: []byte("def alpha():\n    return 1\n")},
		{Filename: "b.png", Content: []byte{0x89, 0x50}},
	})
	require.NoError(t, err)

	task := waitForTerminal(t, svc, id)
	require.Equal(t, core.TaskCompleted, task.Status, "error: %s", task.ErrorMessage)

	stats, ok := task.Result.(core.FileBatchStats)
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.SkippedFiles)
	assert.Zero(t, stats.FailedFiles)
	assert.Positive(t, stats.ProcessedChunks)
	assert.True(t, stats.Success)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ProcessedChunks, status.ChunkCount)
	assert.Contains(t, status.Sources, "a.py")

	// Every scratch directory the batch used is gone.
	leftovers, err := svc.scratchRootEntries()
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSubmitFileBatchRejectsEmptyBatch(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SubmitFileBatch(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrEmptyBatch)
	assert.Zero(t, svc.Stats().Total)
}

func TestSubmitFileBatchRejectsAllUnprocessable(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "empty.py", Content: nil},
		{Filename: "photo.png", Content: []byte{0x89}},
	})
	assert.ErrorIs(t, err, core.ErrNoProcessableFiles)
	assert.Zero(t, svc.Stats().Total)
}

func TestSubmitRepositoryRejectsBadURLSynchronously(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SubmitRepository(context.Background(), "ftp://example.com/repo")
	assert.ErrorIs(t, err, core.ErrInvalidRepoURL)
	assert.Zero(t, svc.Stats().Total)
}

func TestSubmitRepositoryProcessesClone(t *testing.T) {
	svc := newTestService(t, WithCloner(&treeCloner{files: map[string]string{
		"main.go":   "package main\n\nfunc main() {}\n",
		"README.md": "# demo\n",
	}}))

	id, err := svc.SubmitRepository(context.Background(), "https://github.com/acme/demo")
	require.NoError(t, err)

	task := waitForTerminal(t, svc, id)
	require.Equal(t, core.TaskCompleted, task.Status, "error: %s", task.ErrorMessage)

	stats, ok := task.Result.(core.FileBatchStats)
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Positive(t, stats.ProcessedChunks)

	leftovers, err := svc.scratchRootEntries()
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCancelRepositoryTask(t *testing.T) {
	cloner := &blockingCloner{started: make(chan struct{})}
	svc := newTestService(t, WithCloner(cloner))

	id, err := svc.SubmitRepository(context.Background(), "https://github.com/acme/demo")
	require.NoError(t, err)

	<-cloner.started
	require.True(t, svc.CancelTask(id))

	task := waitForTerminal(t, svc, id)
	assert.Equal(t, core.TaskCancelled, task.Status)

	leftovers, err := svc.scratchRootEntries()
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCancelPendingFileBatchRemovesSpillDir(t *testing.T) {
	cloner := &blockingCloner{started: make(chan struct{})}
	svc := newTestServiceWith(t, func(cfg *Config) {
		cfg.MaxConcurrentTasks = 1
		cfg.MemoryLimitBytes = 16
	}, mock.NewMockProvider(), WithCloner(cloner))

	blocker, err := svc.SubmitRepository(context.Background(), "https://github.com/acme/demo")
	require.NoError(t, err)
	<-cloner.started

	// Larger than the memory threshold, so routing spills it to disk
	// before the task exists.
	payload := append([]byte("# big\n"), bytes.Repeat([]byte("x = 1\n"), 16)...)
	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "big.py", Content: payload},
	})
	require.NoError(t, err)

	spilled, err := svc.scratchRootEntries()
	require.NoError(t, err)
	require.NotEmpty(t, spilled)

	task, ok := svc.GetTask(id)
	require.True(t, ok)
	require.Equal(t, core.TaskPending, task.Status)

	require.True(t, svc.CancelTask(id))
	task = waitForTerminal(t, svc, id)
	assert.Equal(t, core.TaskCancelled, task.Status)

	assert.Eventually(t, func() bool {
		leftovers, err := svc.scratchRootEntries()
		return err == nil && len(leftovers) == 0
	}, 5*time.Second, 10*time.Millisecond)

	require.True(t, svc.CancelTask(blocker))
	waitForTerminal(t, svc, blocker)
}

func TestStoreFailureCompletesWithStats(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedder offline")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockAnswerer())
	svc := newTestServiceWith(t, nil, provider)

	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "a.py", Content: []byte("def alpha():\n    return 1\n")},
	})
	require.NoError(t, err)

	task := waitForTerminal(t, svc, id)
	require.Equal(t, core.TaskCompleted, task.Status)

	stats, ok := task.Result.(core.FileBatchStats)
	require.True(t, ok)
	assert.False(t, stats.Success)
	assert.NotEmpty(t, stats.ErrorMessage)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Positive(t, stats.ProcessedChunks)
	assert.Zero(t, stats.FailedFiles)
}

func TestQueryAnswersFromStoredChunks(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "auth.py", Content: []byte("def authenticate(user, password):\n    return check(user, password)\n")},
	})
	require.NoError(t, err)
	task := waitForTerminal(t, svc, id)
	require.Equal(t, core.TaskCompleted, task.Status, "error: %s", task.ErrorMessage)

	result, err := svc.Query(context.Background(), "how does authentication work", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Answer)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "auth.py", result.Matches[0].Chunk.Metadata[core.MetaSourceFile])
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Query(context.Background(), "", 3)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestResetClearsStore(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "a.py", Content: []byte("print('hello')\n")},
	})
	require.NoError(t, err)
	task := waitForTerminal(t, svc, id)
	require.Equal(t, core.TaskCompleted, task.Status)

	require.NoError(t, svc.Reset(context.Background()))

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, status.ChunkCount)
	assert.Empty(t, status.Sources)
}

func TestSweepPassThrough(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.SubmitFileBatch(context.Background(), []upload.Payload{
		{Filename: "a.py", Content: []byte("print('hello')\n")},
	})
	require.NoError(t, err)
	waitForTerminal(t, svc, id)

	// Retention has not elapsed, so the record survives.
	assert.Zero(t, svc.Sweep())

	tasksList := svc.ListTasks(true)
	require.Len(t, tasksList, 1)
	assert.Equal(t, id, tasksList[0].ID)
}
