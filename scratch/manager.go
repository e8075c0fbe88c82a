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


package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Manager creates and removes per-submission scratch directories under a
// single root. Directories are never shared between submissions: each one is
// named from a fresh random identifier so concurrent submissions cannot
// collide.
type Manager struct {
	root   string
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager rooted at root. The root directory itself is
// created lazily on first use.
func NewManager(root string, opts ...Option) (*Manager, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	m := &Manager{
		root:   root,
		logger: slog.Default().With("component", "scratch"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the managed root directory.
func (m *Manager) Root() string {
	return m.root
}

// NewDir creates a fresh scratch directory named "<prefix>_<random>".
// The caller owns the returned Dir and must call Remove when done;
// WithDir does this automatically.
func (m *Manager) NewDir(prefix string) (*Dir, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}

	name := fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
	path := filepath.Join(m.root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	m.logger.Debug("created scratch dir", "path", path)
	return &Dir{path: path, logger: m.logger}, nil
}

// WithDir creates a scratch directory, runs fn with it, and removes it on
// every exit path, including panics. The removal error, if any, is logged
// rather than returned so it cannot mask fn's error.
func (m *Manager) WithDir(prefix string, fn func(dir *Dir) error) error {
	dir, err := m.NewDir(prefix)
	if err != nil {
		return err
	}
	defer dir.Remove()
	return fn(dir)
}

// RemoveStale removes every directory under the root whose name starts with
// "<prefix>_". Used to clear trees left behind by a previous failed run.
// Returns the number of directories removed.
func (m *Manager) RemoveStale(prefix string) int {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix+"_") {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("failed to remove stale scratch dir", "path", path, "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("removed stale scratch dirs", "prefix", prefix, "count", removed)
	}
	return removed
}

// Dir is one scratch directory. It is owned by exactly one submission and
// its lifetime is scoped to that submission's processing.
type Dir struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	removed bool
}

// Path returns the directory's absolute-enough path under the manager root.
func (d *Dir) Path() string {
	return d.path
}

// Join resolves name inside the directory, creating intermediate
// subdirectories when name carries separators. It rejects names that would
// escape the directory.
func (d *Dir) Join(name string) (string, error) {
	dest := filepath.Join(d.path, name)

	absRoot, err := filepath.Abs(d.path)
	if err != nil {
		return "", err
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	if absDest != absRoot && !strings.HasPrefix(absDest, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapes, name)
	}

	if parent := filepath.Dir(dest); parent != d.path {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// Remove deletes the directory and everything in it. Safe to call more than
// once; removal failures are logged and returned.
func (d *Dir) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.removed {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		d.logger.Warn("failed to remove scratch dir", "path", d.path, "err", err)
		return err
	}
	d.removed = true
	d.logger.Debug("removed scratch dir", "path", d.path)
	return nil
}
