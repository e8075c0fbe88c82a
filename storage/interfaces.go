package storage

import (
	"context"

	"github.com/89jobrien/code-chatter/core"
)

// ChunkRepository provides persistence for document chunks.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks stores one or more chunks. Chunks with an ID that already
	// exists are overwritten; content-derived IDs make re-ingesting the
	// same file idempotent. Advances the store generation.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunks retrieves chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ChunkID) ([]*core.Chunk, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// Sources returns the number of chunks per source file.
	Sources(ctx context.Context) (map[string]int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error)

	// DeleteAll removes every chunk and advances the store generation.
	DeleteAll(ctx context.Context) error

	// Generation returns a counter that advances on every mutation. Callers
	// holding derived state (such as search caches) compare generations to
	// detect staleness.
	Generation(ctx context.Context) (uint64, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
