package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/89jobrien/code-chatter/core"
)

// MarshalChunk serializes a chunk for storage.
func MarshalChunk(chunk *core.Chunk) ([]byte, error) {
	data, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalChunk deserializes a chunk from storage.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	var chunk core.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

// MarshalChunkID serializes a chunk ID for index values.
func MarshalChunkID(id core.ChunkID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalChunkID deserializes a chunk ID from an index value.
func UnmarshalChunkID(data []byte) (core.ChunkID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: chunk id must be 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ChunkID(binary.BigEndian.Uint64(data)), nil
}
