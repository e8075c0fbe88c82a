package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/89jobrien/code-chatter/ai/mock"
	"github.com/89jobrien/code-chatter/core"
	badgerstore "github.com/89jobrien/code-chatter/storage/badger"
)

func newTestSearcher(t *testing.T) (*Searcher, *mock.MockEmbedder, func(...*core.Chunk)) {
	t.Helper()

	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	s, err := NewSearcher(repo, embedder)
	require.NoError(t, err)

	add := func(chunks ...*core.Chunk) {
		// Store vectors the mock embedder would produce for the content so
		// an identical query scores 1.0 against its chunk.
		for _, c := range chunks {
			vec, embErr := embedder.EmbedText(context.Background(), c.Content)
			require.NoError(t, embErr)
			c.Vector = vec
		}
		require.NoError(t, repo.AddChunks(context.Background(), chunks...))
	}
	return s, embedder, add
}

func testChunk(source, content string) *core.Chunk {
	return &core.Chunk{
		ID:       core.ChunkIDFromContent(source + "\x00" + content),
		Content:  content,
		Metadata: map[string]string{core.MetaSourceFile: source},
	}
}

func TestNewSearcherRequiresCollaborators(t *testing.T) {
	_, err := NewSearcher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	_, err = NewSearcher(repo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestFindSimilarReturnsBestMatchFirst(t *testing.T) {
	s, _, add := newTestSearcher(t)
	add(
		testChunk("auth.py", "def authenticate(user, password): ..."),
		testChunk("db.py", "def connect_to_database(): ..."),
	)

	results, err := s.FindSimilar(context.Background(), "def authenticate(user, password): ...", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "auth.py", results[0].Chunk.Metadata[core.MetaSourceFile])
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
}

func TestFindSimilarRejectsBadLimit(t *testing.T) {
	s, _, _ := newTestSearcher(t)

	_, err := s.FindSimilar(context.Background(), "anything", 0)
	assert.Error(t, err)
}

func TestFindSimilarCachesRepeatedQueries(t *testing.T) {
	s, embedder, add := newTestSearcher(t)
	add(testChunk("a.py", "alpha content"))

	embedCallsBefore := embedder.CallCount()

	_, err := s.FindSimilar(context.Background(), "alpha content", 3)
	require.NoError(t, err)
	_, err = s.FindSimilar(context.Background(), "alpha content", 3)
	require.NoError(t, err)

	// Second identical query is served from cache without re-embedding.
	assert.Equal(t, embedCallsBefore+1, embedder.CallCount())
	assert.Equal(t, 1, s.CacheSize())
}

func TestCacheMissOnDifferentLimit(t *testing.T) {
	s, _, add := newTestSearcher(t)
	add(testChunk("a.py", "alpha content"))

	_, err := s.FindSimilar(context.Background(), "alpha content", 3)
	require.NoError(t, err)
	_, err = s.FindSimilar(context.Background(), "alpha content", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, s.CacheSize())
}

func TestMutationInvalidatesCache(t *testing.T) {
	s, _, add := newTestSearcher(t)
	add(testChunk("a.py", "alpha content"))

	results, err := s.FindSimilar(context.Background(), "alpha content", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)

	add(testChunk("b.py", "alpha content with more context"))

	results, err = s.FindSimilar(context.Background(), "alpha content", 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMinSimilarityFiltersResults(t *testing.T) {
	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	embedder := mock.NewMockEmbedder()
	s, err := NewSearcher(repo, embedder, WithMinSimilarity(0.99))
	require.NoError(t, err)

	far := testChunk("far.py", "entirely unrelated text")
	far.Vector = []float32{1, 0, 0}
	require.NoError(t, repo.AddChunks(context.Background(), far))

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 1, 0}, nil
	}

	results, err := s.FindSimilar(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWithMinSimilarityRejectsOutOfRange(t *testing.T) {
	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	defer repo.Close()

	_, err = NewSearcher(repo, mock.NewMockEmbedder(), WithMinSimilarity(1.5))
	assert.ErrorIs(t, err, ErrInvalidSimilarity)
}
