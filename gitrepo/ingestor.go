package gitrepo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/89jobrien/code-chatter/batch"
	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/processing"
	"github.com/89jobrien/code-chatter/scratch"
)

const scratchPrefix = "repo"

// Ingestor clones a repository into scratch space, feeds its text files
// through a batch runner and removes the clone afterwards. A single mutex
// serializes ingestions so two clones never compete for disk and network
// at once.
type Ingestor struct {
	cloner  Cloner
	scratch *scratch.Manager
	runner  *batch.Runner
	ignore  *core.IgnoreMatcher
	gate    sync.Mutex
	logger  *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIgnorePatterns replaces the default ignore patterns used when
// selecting repository files.
func WithIgnorePatterns(m *core.IgnoreMatcher) IngestorOption {
	return func(i *Ingestor) {
		if m != nil {
			i.ignore = m
		}
	}
}

// WithIngestorLogger sets a custom logger. Default is slog.Default().
func WithIngestorLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewIngestor creates an ingestor. All three collaborators are required.
func NewIngestor(cloner Cloner, mgr *scratch.Manager, runner *batch.Runner, opts ...IngestorOption) (*Ingestor, error) {
	if cloner == nil {
		return nil, ErrClonerRequired
	}
	if mgr == nil {
		return nil, ErrScratchManagerRequired
	}
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	ing := &Ingestor{
		cloner:  cloner,
		scratch: mgr,
		runner:  runner,
		logger:  slog.Default().With("component", "gitrepo"),
	}
	for _, opt := range opts {
		opt(ing)
	}
	if ing.ignore == nil {
		m, err := core.NewIgnoreMatcher(core.DefaultIgnorePatterns())
		if err != nil {
			return nil, err
		}
		ing.ignore = m
	}
	return ing, nil
}

// Ingest clones url, processes every eligible file and reports the batch
// outcome. The clone directory is removed before returning regardless of
// how processing went.
func (i *Ingestor) Ingest(ctx context.Context, url string) (*core.BatchOutcome, error) {
	if _, err := core.ValidateRepoURL(url); err != nil {
		return nil, err
	}

	i.gate.Lock()
	defer i.gate.Unlock()

	// Only gated code creates clone dirs, so anything with the prefix is
	// leftover from a crashed run.
	if removed := i.scratch.RemoveStale(scratchPrefix); removed > 0 {
		i.logger.Warn("removed stale clone directories", "count", removed)
	}

	var outcome *core.BatchOutcome
	err := i.scratch.WithDir(scratchPrefix, func(dir *scratch.Dir) error {
		if err := i.cloner.Clone(ctx, url, dir.Path()); err != nil {
			return err
		}

		if info, infoErr := i.Inspect(dir.Path()); infoErr == nil {
			i.logger.Info("cloned repository",
				"url", url,
				"total_files", info.TotalFiles,
				"text_files", info.TextFiles,
				"size_bytes", info.TotalSizeBytes)
		}

		paths, err := i.collectFiles(dir.Path())
		if err != nil {
			return fmt.Errorf("walking clone of %s: %w", url, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyRepository, url)
		}

		i.logger.Info("processing repository files", "url", url, "files", len(paths))
		outcome, err = i.runner.Run(ctx, paths)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// RemoveStaleClones deletes clone directories left behind by earlier
// crashed runs.
func (i *Ingestor) RemoveStaleClones() int {
	return i.scratch.RemoveStale(scratchPrefix)
}

// collectFiles walks root and returns the text files worth processing,
// skipping the .git tree and anything the ignore patterns match. Patterns
// are matched against full paths, the same shape the anchored defaults
// like "*/node_modules/*" expect.
func (i *Ingestor) collectFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		full := filepath.ToSlash(path)

		if d.IsDir() {
			if d.Name() == ".git" || (path != root && i.ignore.Match(full+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if i.ignore.Match(full) {
			return nil
		}
		if !processing.IsTextFile(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// RepoInfo summarizes the shape of a cloned repository.
type RepoInfo struct {
	TotalFiles     int            `json:"total_files"`
	TextFiles      int            `json:"text_files"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	FileTypes      map[string]int `json:"file_types"`
	Directories    []string       `json:"directories"`
}

// Inspect walks a local repository tree and reports file counts, sizes and
// extension distribution without processing anything.
func (i *Ingestor) Inspect(root string) (*RepoInfo, error) {
	info := &RepoInfo{FileTypes: make(map[string]int)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if rel != "." {
				info.Directories = append(info.Directories, rel)
			}
			return nil
		}

		info.TotalFiles++
		if fi, statErr := d.Info(); statErr == nil {
			info.TotalSizeBytes += fi.Size()
		}

		ext := filepath.Ext(path)
		if ext == "" {
			ext = "(none)"
		}
		info.FileTypes[ext]++

		if processing.IsTextFile(path) {
			info.TextFiles++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
