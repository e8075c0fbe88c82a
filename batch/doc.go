// Package batch runs per-file processing jobs under a bounded worker pool.
//
// The runner's concurrency ceiling is independent of the task registry's
// admission ceiling: a single task can fan out over many files without
// exceeding the per-batch bound. Heterogeneous outcomes (chunked, skipped,
// failed) are collected without one failure aborting the batch, and the
// surviving chunks are handed to the chunk store in a single call.
package batch
