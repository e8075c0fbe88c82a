// Copyright 2025 The Code Chatter Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/processing"
)

const defaultConcurrency = 5

// ChunkStore receives the chunks extracted from one batch in a single call.
type ChunkStore interface {
	// StoreChunks persists the given chunks. A returned error marks the
	// batch outcome unsuccessful without discarding per-file statistics.
	StoreChunks(ctx context.Context, chunks []*core.Chunk) error
}

// Runner fans a batch of per-file jobs out under a fixed concurrency
// ceiling. The ceiling is independent of how many tasks run concurrently:
// it bounds simultaneous file processing system-wide resource use (file
// descriptors, CPU) within one batch.
type Runner struct {
	processor *processing.FileProcessor
	store     ChunkStore
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithConcurrency sets the per-batch file concurrency ceiling. Default is 5.
func WithConcurrency(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			n = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewRunner creates a batch runner over the given processor and store.
func NewRunner(processor *processing.FileProcessor, store ChunkStore, opts ...Option) (*Runner, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if store == nil {
		return nil, ErrChunkStoreRequired
	}

	pool, err := ants.NewPool(defaultConcurrency)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		processor: processor,
		store:     store,
		pool:      pool,
		logger:    slog.Default().With("component", "batch"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.pool.Release()
			return nil, err
		}
	}
	return r, nil
}

// Run processes every path in the batch and hands the extracted chunks to
// the chunk store in one call. Individual file failures never abort the
// batch: every result is collected and tallied. Result aggregation order is
// unspecified, but each result keeps its input path.
func (r *Runner) Run(ctx context.Context, paths []string) (*core.BatchOutcome, error) {
	if len(paths) == 0 {
		return nil, core.ErrEmptyBatch
	}

	start := time.Now()
	r.logger.Info("starting batch", "files", len(paths))

	results := make([]*core.FileResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			// Cancellation between dispatches: remaining files are
			// recorded as failed so the tallies stay complete.
			results[i] = core.FailedResult(path, err.Error())
			continue
		}

		wg.Add(1)
		i, path := i, path
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			results[i] = r.processor.Process(ctx, path)
		})
		if submitErr != nil {
			wg.Done()
			results[i] = core.FailedResult(path, submitErr.Error())
		}
	}
	wg.Wait()

	outcome := &core.BatchOutcome{Success: true}
	var chunks []*core.Chunk
	for _, result := range results {
		switch result.Outcome {
		case core.OutcomeChunked:
			outcome.Succeeded++
			chunks = append(chunks, result.Chunks...)
		case core.OutcomeSkipped:
			outcome.Skipped++
		case core.OutcomeFailed:
			outcome.Failed++
			r.logger.Warn("file processing failed", "path", result.FilePath, "reason", result.Reason)
		}
	}
	outcome.Chunks = len(chunks)
	// Elapsed covers dispatch through aggregation; store time is not
	// processing time.
	outcome.Elapsed = time.Since(start)

	if len(chunks) > 0 {
		if err := r.store.StoreChunks(ctx, chunks); err != nil {
			r.logger.Error("failed to store chunks", "count", len(chunks), "err", err)
			outcome.Success = false
			outcome.ErrorMessage = "failed to store documents in vector database"
		}
	}

	r.logger.Info("batch completed",
		"succeeded", outcome.Succeeded,
		"skipped", outcome.Skipped,
		"failed", outcome.Failed,
		"chunks", outcome.Chunks,
		"elapsed", outcome.Elapsed)
	return outcome, nil
}

// Release releases the worker pool. The runner must not be used afterwards.
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}
