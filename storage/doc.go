// Package storage defines the persistence contract for document chunks and
// the serialization used by its backends. The backends live in
// sub-packages; storage/badger provides the embedded BadgerDB
// implementation used in production and in tests (in-memory mode).
package storage
