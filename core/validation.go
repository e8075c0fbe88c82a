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


package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// validRepoSchemes are the URL schemes accepted for repository acquisition.
var validRepoSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"git":   true,
	"ssh":   true,
}

// knownGitHosts are hosts recognized without comment. Other hosts are
// permitted too (private and self-hosted Git servers are legitimate); the
// caller may log them for monitoring.
var knownGitHosts = []string{
	"github.com", "gitlab.com", "bitbucket.org",
	"dev.azure.com", "visualstudio.com",
}

// ValidateRepoURL checks that rawURL looks like a clonable Git repository
// URL: a recognized scheme and a non-empty host. It is a heuristic gate, not
// an accessibility check.
//
// Returns ErrInvalidRepoURL (wrapped with detail) on rejection. The second
// return value reports whether the host is one of the well-known hosting
// services.
func ValidateRepoURL(rawURL string) (known bool, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidRepoURL, err)
	}

	if !validRepoSchemes[parsed.Scheme] {
		return false, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRepoURL, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return false, fmt.Errorf("%w: missing host", ErrInvalidRepoURL)
	}

	for _, h := range knownGitHosts {
		if strings.Contains(host, h) {
			return true, nil
		}
	}
	return false, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SafeFilename replaces path-unsafe characters in filename and trims leading
// and trailing dots and spaces. An empty result becomes "unnamed_file".
func SafeFilename(filename string) string {
	safe := unsafeFilenameChars.ReplaceAllString(filename, "_")
	safe = strings.Trim(safe, ". ")
	if safe == "" {
		return "unnamed_file"
	}
	return safe
}

// IgnoreMatcher matches file paths against a set of glob patterns.
// Patterns follow fnmatch semantics: "*" crosses path separators, so
// "*/.git/*" matches at any depth.
type IgnoreMatcher struct {
	globs []glob.Glob
}

// NewIgnoreMatcher compiles the given patterns. Invalid patterns are
// rejected so misconfiguration surfaces at startup, not per file.
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return &IgnoreMatcher{globs: globs}, nil
}

// Match reports whether path matches any ignore pattern.
func (m *IgnoreMatcher) Match(path string) bool {
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// DefaultIgnorePatterns lists paths excluded from processing by default:
// version-control internals, dependency trees, caches, locks, and binary
// asset types.
func DefaultIgnorePatterns() []string {
	return []string{
		"*/.git/*", "*/.github/*", "*/node_modules/*", "*/.venv/*",
		"*/venv/*", "*/__pycache__/*", "*.pyc", "*.lock", "*.log", "*/.DS_Store",
		"*.min.js", "*.map", "*.pdf", "*.jpg", "*.jpeg", "*.png", "*.gif",
	}
}
