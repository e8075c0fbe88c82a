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


package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/89jobrien/code-chatter/core"
)

const (
	defaultChunkSize     = 2000
	defaultChunkOverlap  = 200
	defaultMaxFileSizeMB = 100
)

// FileProcessor turns one file into an ordered sequence of chunks with
// provenance metadata attached.
type FileProcessor struct {
	chunkSize        int
	chunkOverlap     int
	maxFileSizeBytes int64
	logger           *slog.Logger
}

// Option configures a FileProcessor.
type Option func(*FileProcessor)

// WithChunkSize sets the target chunk size in characters. Default is 2000.
func WithChunkSize(size int) Option {
	return func(p *FileProcessor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks. Default is 200.
func WithChunkOverlap(overlap int) Option {
	return func(p *FileProcessor) {
		if overlap >= 0 {
			p.chunkOverlap = overlap
		}
	}
}

// WithMaxFileSize sets the per-file size ceiling in megabytes. Default is 100.
func WithMaxFileSize(mb int) Option {
	return func(p *FileProcessor) {
		if mb > 0 {
			p.maxFileSizeBytes = int64(mb) * 1024 * 1024
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *FileProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFileProcessor creates a processor with default chunking parameters.
func NewFileProcessor(opts ...Option) *FileProcessor {
	p := &FileProcessor{
		chunkSize:        defaultChunkSize,
		chunkOverlap:     defaultChunkOverlap,
		maxFileSizeBytes: defaultMaxFileSizeMB * 1024 * 1024,
		logger:           slog.Default().With("component", "processing"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process loads, splits, and annotates one file. It never returns an error:
// every failure path is folded into the returned result so one bad file
// cannot abort a batch. Non-text extensions, oversized files, and files
// yielding no content are benign skips rather than errors.
func (p *FileProcessor) Process(ctx context.Context, path string) *core.FileResult {
	if !IsTextFile(path) {
		p.logger.Debug("skipping non-text file", "path", path)
		return core.SkippedResult(path, "not a text file")
	}

	if info, err := os.Stat(path); err == nil && info.Size() > p.maxFileSizeBytes {
		p.logger.Warn("skipping large file", "path", path, "size", info.Size())
		return core.SkippedResult(path,
			fmt.Sprintf("file exceeds %dMB limit", p.maxFileSizeBytes/(1024*1024)))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("failed to load file", "path", path, "err", err)
		return core.FailedResult(path, err.Error())
	}
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return core.SkippedResult(path, "no content loaded from file")
	}

	if err := ctx.Err(); err != nil {
		return core.FailedResult(path, err.Error())
	}

	splitter := splitterFor(path, p.chunkSize, p.chunkOverlap)
	pieces, err := splitter.SplitText(content)
	if err != nil {
		p.logger.Error("failed to split file", "path", path, "err", err)
		return core.FailedResult(path, err.Error())
	}
	if len(pieces) == 0 {
		return core.SkippedResult(path, "no content loaded from file")
	}

	fileType := strings.TrimPrefix(fileExtension(path), ".")
	if fileType == "" {
		fileType = "unknown"
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			ID:      core.ChunkIDFromContent(path + "\x00" + piece),
			Content: piece,
			Metadata: map[string]string{
				core.MetaSourceFile:          path,
				core.MetaFileType:            fileType,
				core.MetaProcessingTimestamp: timestamp,
			},
		}
	}

	p.logger.Debug("processed file", "path", path, "chunks", len(chunks))
	return core.ChunkedResult(path, chunks)
}
