package badger

import (
	"context"
	"encoding/binary"
	"math"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend

	// Write transactions are serialized so the generation counter never
	// hits an optimistic-concurrency conflict.
	writeMu sync.Mutex
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &ChunkRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// AddChunks stores one or more chunks and their source index entries.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			value, err := storage.MarshalChunk(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(chunk.ID), value); err != nil {
				return err
			}

			source := chunk.Metadata[core.MetaSourceFile]
			srcKey := makeChunkSourceKey(source, chunk.ID)
			if err := tx.Set(srcKey, storage.MarshalChunkID(chunk.ID)); err != nil {
				return err
			}
		}
		if err := bumpGeneration(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetChunks retrieves chunks by ID, skipping IDs that do not exist.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ChunkID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeChunkKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			var chunk *core.Chunk
			err = item.Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// CountChunks returns the number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Sources returns the number of chunks per source file, read from the
// source index.
func (r *ChunkRepository) Sources(ctx context.Context) (map[string]int, error) {
	sources := make(map[string]int)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkSourcePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if source, ok := splitChunkSourceKey(iter.Item().Key()); ok {
				sources[source]++
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// FindSimilar scans all chunks and returns those whose cosine similarity to
// vector is at least minSimilarity, best first, at most limit of them.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.ScoredChunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil || len(chunk.Vector) == 0 {
				continue
			}

			similarity := cosineSimilarity(vector, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.ScoredChunk{Chunk: chunk, Score: similarity})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteAll removes every chunk and index entry.
func (r *ChunkRepository) DeleteAll(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	// Collect first, then delete; deleting under an open iterator is not
	// allowed.
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range []string{chunkRecordPrefix + ":", chunkSourcePrefix + ":"} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			opts.PrefetchValues = false
			iter := tx.NewIterator(opts)
			for iter.Rewind(); iter.Valid(); iter.Next() {
				keys = append(keys, iter.Item().KeyCopy(nil))
			}
			iter.Close()
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := bumpGeneration(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Generation returns the mutation counter.
func (r *ChunkRepository) Generation(ctx context.Context) (uint64, error) {
	var generation uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		generation, err = readGeneration(tx)
		return err
	}, false)
	if err != nil {
		return 0, err
	}
	return generation, nil
}

func readGeneration(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get([]byte(generationKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var generation uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrSerializationFailed
		}
		generation = binary.BigEndian.Uint64(val)
		return nil
	})
	return generation, err
}

func bumpGeneration(tx *badger.Txn) error {
	generation, err := readGeneration(tx)
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, generation+1)
	return tx.Set([]byte(generationKey), buf)
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths compare over the shorter prefix.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, normA, normB float32
	for i := 0; i < minLen; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
