package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/storage"
)

func newTestRepo(t *testing.T) storage.ChunkRepository {
	t.Helper()
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func chunkFor(source, content string, vector ...float32) *core.Chunk {
	return &core.Chunk{
		ID:      core.ChunkIDFromContent(source + "\x00" + content),
		Content: content,
		Metadata: map[string]string{
			core.MetaSourceFile: source,
			core.MetaFileType:   ".py",
		},
		Vector: vector,
	}
}

func TestAddAndGetChunks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := chunkFor("a.py", "def a(): pass", 1, 0)
	b := chunkFor("b.py", "def b(): pass", 0, 1)
	require.NoError(t, repo.AddChunks(ctx, a, b))

	got, err := repo.GetChunks(ctx, a.ID, b.ID, core.ChunkID(42))
	require.NoError(t, err)
	require.Len(t, got, 2)

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddChunksIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := chunkFor("a.py", "def a(): pass", 1, 0)
	require.NoError(t, repo.AddChunks(ctx, a))
	require.NoError(t, repo.AddChunks(ctx, a))

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSourcesIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddChunks(ctx,
		chunkFor("a.py", "first", 1),
		chunkFor("a.py", "second", 1),
		chunkFor("b.go", "third", 1),
	))

	sources, err := repo.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.py": 2, "b.go": 1}, sources)
}

func TestFindSimilarOrdersByScore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exact := chunkFor("a.py", "exact match", 1, 0, 0)
	near := chunkFor("b.py", "close match", 0.9, 0.1, 0)
	far := chunkFor("c.py", "far away", 0, 0, 1)
	require.NoError(t, repo.AddChunks(ctx, exact, near, far))

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, exact.ID, results[0].Chunk.ID)
	assert.Equal(t, near.ID, results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFindSimilarHonorsLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddChunks(ctx,
		chunkFor("a.py", "one", 1, 0),
		chunkFor("b.py", "two", 0.9, 0.1),
		chunkFor("c.py", "three", 0.8, 0.2),
	))

	results, err := repo.FindSimilar(ctx, []float32{1, 0}, 0, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFindSimilarRejectsBadLimit(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindSimilar(context.Background(), []float32{1}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFindSimilarSkipsUnembeddedChunks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddChunks(ctx,
		chunkFor("a.py", "has vector", 1, 0),
		chunkFor("b.py", "no vector"),
	))

	results, err := repo.FindSimilar(ctx, []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDeleteAllClearsEverything(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddChunks(ctx,
		chunkFor("a.py", "one", 1),
		chunkFor("b.py", "two", 1),
	))
	require.NoError(t, repo.DeleteAll(ctx))

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	sources, err := repo.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestGenerationAdvancesOnMutation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g0, err := repo.Generation(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.AddChunks(ctx, chunkFor("a.py", "one", 1)))
	g1, err := repo.Generation(ctx)
	require.NoError(t, err)
	assert.Greater(t, g1, g0)

	require.NoError(t, repo.DeleteAll(ctx))
	g2, err := repo.Generation(ctx)
	require.NoError(t, err)
	assert.Greater(t, g2, g1)

	// Reads do not advance the generation.
	_, err = repo.CountChunks(ctx)
	require.NoError(t, err)
	g3, err := repo.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, g2, g3)
}
