package batch

import "errors"

var (
	// ErrProcessorRequired is returned when a runner is created without a file processor.
	ErrProcessorRequired = errors.New("file processor required")

	// ErrChunkStoreRequired is returned when a runner is created without a chunk store.
	ErrChunkStoreRequired = errors.New("chunk store required")
)
