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
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/89jobrien/code-chatter/core"
)

// Config is the process-level configuration for the ingestion service.
type Config struct {
	// MemoryLimitBytes is the upload size above which a payload spills to
	// disk instead of staying in memory. Default: 5 MiB.
	MemoryLimitBytes int64

	// MaxConcurrentFiles bounds how many files one batch processes at once.
	// Default: 5.
	MaxConcurrentFiles int

	// MaxConcurrentTasks bounds how many background tasks run at once.
	// Default: 3.
	MaxConcurrentTasks int

	// MaxFileSizeMB is the per-file size ceiling. Default: 100.
	MaxFileSizeMB int

	// ChunkSize is the splitter chunk size in characters. Default: 2000.
	ChunkSize int

	// ChunkOverlap is the splitter overlap in characters. Default: 200.
	ChunkOverlap int

	// IgnorePatterns are glob patterns for files excluded from processing.
	IgnorePatterns []string

	// TaskRetention is how long terminal task records are kept. Default: 1h.
	TaskRetention time.Duration

	// ScratchRoot is the base directory for scratch space.
	ScratchRoot string

	// DBPath is the BadgerDB directory.
	DBPath string
}

// DefaultConfig returns a Config with the defaults the service ships with.
func DefaultConfig() Config {
	base := filepath.Join(os.TempDir(), "code-chatter")
	return Config{
		MemoryLimitBytes:   5 * 1024 * 1024,
		MaxConcurrentFiles: 5,
		MaxConcurrentTasks: 3,
		MaxFileSizeMB:      100,
		ChunkSize:          2000,
		ChunkOverlap:       200,
		IgnorePatterns:     core.DefaultIgnorePatterns(),
		TaskRetention:      time.Hour,
		ScratchRoot:        filepath.Join(base, "scratch"),
		DBPath:             filepath.Join(base, "db"),
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.MemoryLimitBytes <= 0 {
		return errors.New("ingest config: MemoryLimitBytes must be positive")
	}
	if c.MaxConcurrentFiles < 1 {
		return errors.New("ingest config: MaxConcurrentFiles must be at least 1")
	}
	if c.MaxConcurrentTasks < 1 {
		return errors.New("ingest config: MaxConcurrentTasks must be at least 1")
	}
	if c.MaxFileSizeMB < 1 {
		return errors.New("ingest config: MaxFileSizeMB must be at least 1")
	}
	if c.ChunkSize < 1 {
		return errors.New("ingest config: ChunkSize must be at least 1")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return errors.New("ingest config: ChunkOverlap must be non-negative and smaller than ChunkSize")
	}
	if c.TaskRetention <= 0 {
		return errors.New("ingest config: TaskRetention must be positive")
	}
	if c.ScratchRoot == "" {
		return errors.New("ingest config: ScratchRoot is required")
	}
	return nil
}
