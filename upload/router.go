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


package upload

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/scratch"
)

const defaultMemoryLimitBytes = 5 * 1024 * 1024 // 5 MiB

// Payload is one incoming upload, read while the submitting request is
// still active.
type Payload struct {
	Filename string
	Content  []byte
}

// MemoryFile is a payload small enough to stay in memory.
type MemoryFile struct {
	Name    string
	Content []byte
}

// Routed is the classification of one submission's payloads. When any
// payload spilled to disk, Dir owns the scratch directory holding them; the
// caller must remove it when processing finishes.
type Routed struct {
	InMemory []MemoryFile
	OnDisk   []string
	Dir      *scratch.Dir
	Skipped  int
}

// Router classifies payloads as keep-in-memory or spill-to-disk based on a
// fixed size threshold. One scratch directory, created lazily, receives all
// oversized payloads of a submission.
type Router struct {
	scratch     *scratch.Manager
	validator   *Validator
	memoryLimit int64
	logger      *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMemoryLimit sets the in-memory threshold in bytes. Default is 5 MiB.
func WithMemoryLimit(limit int64) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.memoryLimit = limit
		}
	}
}

// WithValidator sets the pre-routing validator. By default payloads are
// only checked for emptiness.
func WithValidator(v *Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// WithRouterLogger sets a custom logger. Default is slog.Default().
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a router writing spilled payloads through mgr.
func NewRouter(mgr *scratch.Manager, opts ...RouterOption) (*Router, error) {
	if mgr == nil {
		return nil, ErrScratchManagerRequired
	}
	r := &Router{
		scratch:     mgr,
		memoryLimit: defaultMemoryLimitBytes,
		logger:      slog.Default().With("component", "upload"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Route classifies every payload. Empty payloads and payloads rejected by
// the validator are skipped with a warning. If nothing qualifies for
// processing the scratch directory (if one was created) is removed and
// core.ErrNoProcessableFiles is returned.
func (r *Router) Route(payloads []Payload) (*Routed, error) {
	if len(payloads) == 0 {
		return nil, core.ErrEmptyBatch
	}

	routed := &Routed{}
	for _, p := range payloads {
		if len(p.Content) == 0 {
			r.logger.Warn("skipping empty upload", "filename", p.Filename)
			routed.Skipped++
			continue
		}

		if r.validator != nil {
			if verdict := r.validator.Validate(p.Filename, int64(len(p.Content))); !verdict.OK {
				r.logger.Info("skipping upload", "filename", p.Filename, "reason", verdict.Reason)
				routed.Skipped++
				continue
			}
		}

		name := core.SafeFilename(p.Filename)

		if int64(len(p.Content)) <= r.memoryLimit {
			routed.InMemory = append(routed.InMemory, MemoryFile{Name: name, Content: p.Content})
			continue
		}

		path, err := r.spill(routed, name, p.Content)
		if err != nil {
			r.logger.Error("failed to spill upload to disk", "filename", name, "err", err)
			routed.Skipped++
			continue
		}
		routed.OnDisk = append(routed.OnDisk, path)
	}

	if len(routed.InMemory) == 0 && len(routed.OnDisk) == 0 {
		if routed.Dir != nil {
			routed.Dir.Remove()
			routed.Dir = nil
		}
		return nil, core.ErrNoProcessableFiles
	}

	r.logger.Info("routed upload batch",
		"in_memory", len(routed.InMemory),
		"on_disk", len(routed.OnDisk),
		"skipped", routed.Skipped)
	return routed, nil
}

// spill writes content into the submission's scratch directory, creating the
// directory on first need.
func (r *Router) spill(routed *Routed, name string, content []byte) (string, error) {
	if routed.Dir == nil {
		dir, err := r.scratch.NewDir("upload")
		if err != nil {
			return "", err
		}
		routed.Dir = dir
	}

	dest, err := routed.Dir.Join(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		// Do not leave partial files behind.
		os.Remove(dest)
		return "", fmt.Errorf("writing spilled upload: %w", err)
	}
	return dest, nil
}
