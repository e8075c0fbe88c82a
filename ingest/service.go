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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/89jobrien/code-chatter/ai"
	"github.com/89jobrien/code-chatter/batch"
	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/gitrepo"
	"github.com/89jobrien/code-chatter/processing"
	"github.com/89jobrien/code-chatter/scratch"
	"github.com/89jobrien/code-chatter/search"
	"github.com/89jobrien/code-chatter/storage"
	"github.com/89jobrien/code-chatter/tasks"
	"github.com/89jobrien/code-chatter/upload"
)

// Service is the submission boundary of the ingestion backend. Submissions
// are validated synchronously; everything slow runs in background tasks
// tracked by the registry.
type Service struct {
	cfg        Config
	registry   *tasks.Registry
	scratchMgr *scratch.Manager
	router     *upload.Router
	runner     *batch.Runner
	ingestor   *gitrepo.Ingestor
	repository storage.ChunkRepository
	searcher   *search.Searcher
	answerer   ai.Answerer
	cloner     gitrepo.Cloner
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCloner replaces the git cloner, mainly for tests.
func WithCloner(cloner gitrepo.Cloner) Option {
	return func(s *Service) {
		if cloner != nil {
			s.cloner = cloner
		}
	}
}

// NewService wires the ingestion pipeline together.
func NewService(cfg Config, repository storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Service{
		cfg:        cfg,
		repository: repository,
		answerer:   provider.Answerer(),
		cloner:     gitrepo.NewExecCloner(),
		logger:     slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		opt(s)
	}

	ignore, err := core.NewIgnoreMatcher(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	s.scratchMgr, err = scratch.NewManager(cfg.ScratchRoot, scratch.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	validator, err := upload.NewValidator(
		upload.WithMaxFileSize(cfg.MaxFileSizeMB),
		upload.WithIgnorePatterns(cfg.IgnorePatterns),
		upload.WithValidatorLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	s.router, err = upload.NewRouter(s.scratchMgr,
		upload.WithMemoryLimit(cfg.MemoryLimitBytes),
		upload.WithValidator(validator),
		upload.WithRouterLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	processor := processing.NewFileProcessor(
		processing.WithChunkSize(cfg.ChunkSize),
		processing.WithChunkOverlap(cfg.ChunkOverlap),
		processing.WithMaxFileSize(cfg.MaxFileSizeMB),
		processing.WithLogger(s.logger),
	)

	store := &embeddingStore{
		repository: repository,
		embedder:   provider.Embedder(),
		logger:     s.logger,
	}

	s.runner, err = batch.NewRunner(processor, store,
		batch.WithConcurrency(cfg.MaxConcurrentFiles),
		batch.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	s.ingestor, err = gitrepo.NewIngestor(s.cloner, s.scratchMgr, s.runner,
		gitrepo.WithIgnorePatterns(ignore),
		gitrepo.WithIngestorLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	s.searcher, err = search.NewSearcher(repository, provider.Embedder(),
		search.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	s.registry = tasks.NewRegistry(
		tasks.WithMaxConcurrent(cfg.MaxConcurrentTasks),
		tasks.WithRetention(cfg.TaskRetention),
		tasks.WithLogger(s.logger),
	)

	// Upload spill dirs from a previous crashed run are never reclaimed by
	// their owners.
	if removed := s.scratchMgr.RemoveStale("upload"); removed > 0 {
		s.logger.Warn("removed stale upload directories", "count", removed)
	}

	return s, nil
}

// SubmitFileBatch validates and routes payloads synchronously, then starts a
// background task that processes them. Returns the task id.
func (s *Service) SubmitFileBatch(ctx context.Context, payloads []upload.Payload) (string, error) {
	routed, err := s.router.Route(payloads)
	if err != nil {
		return "", err
	}

	// The spill directory is created before the task exists, so its removal
	// is tied to the task's terminal state, not to the work unit's body: a
	// cancellation while still pending must reclaim it too.
	var opts []tasks.SubmitOption
	if routed.Dir != nil {
		dir := routed.Dir
		opts = append(opts, tasks.WithCleanup(func() { dir.Remove() }))
	}

	total := len(payloads)
	id := s.registry.Submit(ctx, "process-files", func(ctx context.Context) (any, error) {
		return s.processRouted(ctx, routed, total)
	}, opts...)
	return id, nil
}

// processRouted is the work unit behind SubmitFileBatch. It owns the scratch
// directory it creates for in-memory payloads; the routing spill directory
// is reclaimed by the task finalizer.
func (s *Service) processRouted(ctx context.Context, routed *upload.Routed, totalFiles int) (any, error) {
	paths := append([]string(nil), routed.OnDisk...)

	// Small payloads stayed in memory through submission; the processor
	// reads from disk, so they get their own scratch dir for the task's
	// lifetime.
	if len(routed.InMemory) > 0 {
		dir, err := s.scratchMgr.NewDir("upload")
		if err != nil {
			return nil, fmt.Errorf("creating scratch dir for batch: %w", err)
		}
		defer dir.Remove()

		for _, f := range routed.InMemory {
			path, err := dir.Join(f.Name)
			if err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, f.Content, 0o644); err != nil {
				return nil, fmt.Errorf("writing %s: %w", f.Name, err)
			}
			paths = append(paths, path)
		}
	}

	outcome, err := s.runner.Run(ctx, paths)
	if err != nil {
		return nil, err
	}
	// A cancellation mid-batch leaves the runner's tallies complete but the
	// task itself must end cancelled, not completed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A store rejection is soft: the task completes with the per-file
	// counts intact and carries the storage error in the result.
	return core.FileBatchStats{
		TotalFiles:        totalFiles,
		ProcessedChunks:   outcome.Chunks,
		SkippedFiles:      routed.Skipped + outcome.Skipped,
		FailedFiles:       outcome.Failed,
		ProcessingSeconds: outcome.Elapsed.Seconds(),
		Success:           outcome.Success,
		ErrorMessage:      outcome.ErrorMessage,
	}, nil
}

// SubmitRepository validates url synchronously, then starts a background
// task that clones and processes the repository. Returns the task id.
func (s *Service) SubmitRepository(ctx context.Context, url string) (string, error) {
	if _, err := core.ValidateRepoURL(url); err != nil {
		return "", err
	}

	id := s.registry.Submit(ctx, "process-repo", func(ctx context.Context) (any, error) {
		outcome, err := s.ingestor.Ingest(ctx, url)
		if err != nil {
			return nil, err
		}
		return core.FileBatchStats{
			TotalFiles:        outcome.Succeeded + outcome.Skipped + outcome.Failed,
			ProcessedChunks:   outcome.Chunks,
			SkippedFiles:      outcome.Skipped,
			FailedFiles:       outcome.Failed,
			ProcessingSeconds: outcome.Elapsed.Seconds(),
			Success:           outcome.Success,
			ErrorMessage:      outcome.ErrorMessage,
		}, nil
	})
	return id, nil
}

// GetTask returns a snapshot of the task record.
func (s *Service) GetTask(id string) (core.Task, bool) {
	return s.registry.Get(id)
}

// ListTasks returns task snapshots in creation order.
func (s *Service) ListTasks(includeTerminal bool) []core.Task {
	return s.registry.List(includeTerminal)
}

// CancelTask requests cancellation of a live task.
func (s *Service) CancelTask(id string) bool {
	return s.registry.Cancel(id)
}

// Stats returns task registry statistics.
func (s *Service) Stats() tasks.Stats {
	return s.registry.Stats()
}

// Sweep removes expired terminal task records.
func (s *Service) Sweep() int {
	return s.registry.Sweep()
}

// QueryResult is the answer to one question with its supporting chunks.
type QueryResult struct {
	Answer  string              `json:"answer"`
	Matches []*core.ScoredChunk `json:"matches"`
}

// Query answers a question using the most similar stored chunks as context.
func (s *Service) Query(ctx context.Context, question string, maxResults int) (*QueryResult, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	matches, err := s.searcher.FindSimilar(ctx, question, maxResults)
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(matches))
	for i, m := range matches {
		passages[i] = fmt.Sprintf("%s:\n%s", m.Chunk.Metadata[core.MetaSourceFile], m.Chunk.Content)
	}

	answer, err := s.answerer.Answer(ctx, question, passages)
	if err != nil {
		return nil, err
	}

	return &QueryResult{Answer: answer, Matches: matches}, nil
}

// Status describes the service for the health endpoint.
type Status struct {
	ChunkCount int            `json:"chunk_count"`
	Sources    map[string]int `json:"sources"`
	Tasks      tasks.Stats    `json:"tasks"`
}

// Status reports chunk counts and task statistics.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	count, err := s.repository.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	sources, err := s.repository.Sources(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		ChunkCount: count,
		Sources:    sources,
		Tasks:      s.registry.Stats(),
	}, nil
}

// Reset deletes every stored chunk.
func (s *Service) Reset(ctx context.Context) error {
	s.logger.Warn("resetting chunk store")
	return s.repository.DeleteAll(ctx)
}

// Close releases the service's worker pool. The repository and AI provider
// are owned by the caller and stay open.
func (s *Service) Close() error {
	s.runner.Release()
	return nil
}

// scratchRootEntries is a test hook for asserting scratch cleanup.
func (s *Service) scratchRootEntries() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.ScratchRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(s.cfg.ScratchRoot, e.Name()))
	}
	return names, nil
}
