package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/89jobrien/code-chatter/ai"
	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/storage"
)

const defaultMinSimilarity = 0.0

// Searcher provides semantic search over stored document chunks. Results
// are cached per (query, limit) pair; the cache is dropped wholesale
// whenever the repository generation advances, so a mutation anywhere
// invalidates everything derived from the old contents.
type Searcher struct {
	repository    storage.ChunkRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger

	mu         sync.Mutex
	cache      map[cacheKey][]*core.ScoredChunk
	generation uint64
}

type cacheKey struct {
	query string
	limit int
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the similarity floor below which chunks are not
// returned. Default is 0, meaning every non-negative match is eligible.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < -1 || min > 1 {
			return fmt.Errorf("%w: min similarity %v outside [-1, 1]", ErrInvalidSimilarity, min)
		}
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		repository:    repository,
		embedder:      embedder,
		minSimilarity: defaultMinSimilarity,
		logger:        slog.Default().With("component", "search"),
		cache:         make(map[cacheKey][]*core.ScoredChunk),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindSimilar returns up to limit chunks ranked by similarity to query,
// best first.
func (s *Searcher) FindSimilar(ctx context.Context, query string, limit int) ([]*core.ScoredChunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	generation, err := s.repository.Generation(ctx)
	if err != nil {
		return nil, err
	}

	key := cacheKey{query: query, limit: limit}
	if hit, ok := s.cachedResult(key, generation); ok {
		s.logger.Debug("search cache hit", "limit", limit)
		return hit, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	results, err := s.repository.FindSimilar(ctx, embedding, s.minSimilarity, limit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	s.storeResult(key, generation, results)
	return results, nil
}

// cachedResult returns a cache entry valid for the given generation. A
// generation change empties the whole cache first.
func (s *Searcher) cachedResult(key cacheKey, generation uint64) ([]*core.ScoredChunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		s.cache = make(map[cacheKey][]*core.ScoredChunk)
		s.generation = generation
		return nil, false
	}
	hit, ok := s.cache[key]
	return hit, ok
}

func (s *Searcher) storeResult(key cacheKey, generation uint64, results []*core.ScoredChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent mutation may have advanced the generation while we were
	// embedding; stale results must not be cached under the new one.
	if generation != s.generation {
		return
	}
	s.cache[key] = results
}

// CacheSize returns the number of cached result sets.
func (s *Searcher) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}
