package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantErr   bool
		wantKnown bool
	}{
		{name: "github https", url: "https://github.com/owner/repo.git", wantKnown: true},
		{name: "gitlab https", url: "https://gitlab.com/owner/repo", wantKnown: true},
		{name: "ssh scheme", url: "ssh://git@github.com/owner/repo.git", wantKnown: true},
		{name: "git scheme", url: "git://github.com/owner/repo.git", wantKnown: true},
		{name: "self-hosted allowed", url: "https://git.internal.example/owner/repo.git", wantKnown: false},
		{name: "ftp rejected", url: "ftp://github.com/owner/repo.git", wantErr: true},
		{name: "file rejected", url: "file:///tmp/repo", wantErr: true},
		{name: "no scheme rejected", url: "github.com/owner/repo", wantErr: true},
		{name: "empty rejected", url: "", wantErr: true},
		{name: "missing host rejected", url: "https:///owner/repo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			known, err := ValidateRepoURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRepoURL))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"main.py", "main.py"},
		{"a/b/c.txt", "a_b_c.txt"},
		{`bad<>:"|?*.go`, "bad_______.go"},
		{"..hidden..", "hidden"},
		{"  spaced  ", "spaced"},
		{"", "unnamed_file"},
		{"...", "unnamed_file"},
		{`..\..\evil`, "evil"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeFilename(tt.in), "input %q", tt.in)
	}
}

func TestIgnoreMatcher(t *testing.T) {
	m, err := NewIgnoreMatcher(DefaultIgnorePatterns())
	require.NoError(t, err)

	assert.True(t, m.Match("repo/.git/config"))
	assert.True(t, m.Match("repo/sub/node_modules/pkg/index.js"))
	assert.True(t, m.Match("build/app.min.js"))
	assert.True(t, m.Match("poetry.lock"))
	assert.True(t, m.Match("assets/logo.png"))
	assert.False(t, m.Match("src/main.go"))
	assert.False(t, m.Match("README.md"))
}

func TestIgnoreMatcherInvalidPattern(t *testing.T) {
	_, err := NewIgnoreMatcher([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestIgnoreMatcherEmpty(t *testing.T) {
	m, err := NewIgnoreMatcher(nil)
	require.NoError(t, err)
	assert.False(t, m.Match("anything"))
}
