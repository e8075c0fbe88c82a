package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/89jobrien/code-chatter/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix = "chkrec"
	chunkSourcePrefix = "chksrc"
	generationKey     = "chkgen"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ChunkID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkSourceKey generates a composite key for the source-file index.
// Format: prefix:source:id
func makeChunkSourceKey(source string, id core.ChunkID) []byte {
	prefix := chunkSourcePrefix + ":"
	totalSize := len(prefix) + len(source) + 1 + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, []byte(prefix))
	offset += copy(buf[offset:], []byte(source))
	buf[offset] = 0
	offset++
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// splitChunkSourceKey extracts the source file name from a source index key.
func splitChunkSourceKey(key []byte) (string, bool) {
	prefix := []byte(chunkSourcePrefix + ":")
	if len(key) < len(prefix)+1+8 {
		return "", false
	}
	return string(key[len(prefix) : len(key)-9]), true
}
