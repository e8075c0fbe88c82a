// Package badger implements storage.ChunkRepository on an embedded
// BadgerDB. Chunks are stored as JSON values under id-derived keys with a
// per-source index alongside, and every mutation advances a generation
// counter that similarity-search caches use to detect staleness.
package badger
