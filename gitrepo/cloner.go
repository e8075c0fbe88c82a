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


package gitrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultCloneTimeout = 5 * time.Minute

// Cloner materializes a remote repository into a local directory.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// ExecCloner shells out to the git binary for shallow clones. A shallow
// clone is all ingestion needs; history is never read.
type ExecCloner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// ClonerOption configures an ExecCloner.
type ClonerOption func(*ExecCloner)

// WithCloneTimeout bounds how long a single clone may take. Default is
// five minutes.
func WithCloneTimeout(d time.Duration) ClonerOption {
	return func(c *ExecCloner) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClonerLogger sets a custom logger. Default is slog.Default().
func WithClonerLogger(logger *slog.Logger) ClonerOption {
	return func(c *ExecCloner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewExecCloner creates a cloner backed by the git binary.
func NewExecCloner(opts ...ClonerOption) *ExecCloner {
	c := &ExecCloner{
		timeout: defaultCloneTimeout,
		logger:  slog.Default().With("component", "gitrepo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone performs a depth-1 clone of url into dir.
func (c *ExecCloner) Clone(ctx context.Context, url, dir string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("cloning repository", "url", url, "dir", dir)

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", ErrCloneFailed, url, ctx.Err())
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrCloneFailed, url, detail)
	}
	return nil
}
