package ingest

import (
	"context"
	"log/slog"

	"github.com/89jobrien/code-chatter/ai"
	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/storage"
)

// embeddingStore adapts a chunk repository into the batch runner's store
// contract by embedding chunk content before persisting it.
type embeddingStore struct {
	repository storage.ChunkRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

func (s *embeddingStore) StoreChunks(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		s.logger.Error("failed to embed chunk batch", "count", len(chunks), "err", err)
		return err
	}
	for i := range chunks {
		if i < len(vectors) {
			chunks[i].Vector = vectors[i]
		}
	}

	return s.repository.AddChunks(ctx, chunks...)
}
