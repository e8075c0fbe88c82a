package upload

import (
	"fmt"
	"log/slog"

	"github.com/89jobrien/code-chatter/core"
)

// Verdict is the outcome of pre-processing validation for one payload.
type Verdict struct {
	OK     bool
	Reason string
}

// Validator applies filename, ignore-pattern, and size checks to a payload
// before any processing resource is committed to it.
//
// Validation never fails closed: when the size cannot be determined the
// payload is accepted, so a probing hiccup cannot block a legitimate file.
type Validator struct {
	maxFileSizeBytes int64
	ignore           *core.IgnoreMatcher
	logger           *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator) error

// WithMaxFileSize sets the per-file size ceiling in megabytes. Default is 100.
func WithMaxFileSize(mb int) ValidatorOption {
	return func(v *Validator) error {
		if mb < 1 {
			mb = 1
		}
		v.maxFileSizeBytes = int64(mb) * 1024 * 1024
		return nil
	}
}

// WithIgnorePatterns replaces the default ignore-glob set.
func WithIgnorePatterns(patterns []string) ValidatorOption {
	return func(v *Validator) error {
		m, err := core.NewIgnoreMatcher(patterns)
		if err != nil {
			return err
		}
		v.ignore = m
		return nil
	}
}

// WithValidatorLogger sets a custom logger. Default is slog.Default().
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) error {
		if logger != nil {
			v.logger = logger
		}
		return nil
	}
}

// NewValidator creates a validator with the default size ceiling and ignore set.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	ignore, err := core.NewIgnoreMatcher(core.DefaultIgnorePatterns())
	if err != nil {
		return nil, err
	}
	v := &Validator{
		maxFileSizeBytes: 100 * 1024 * 1024,
		ignore:           ignore,
		logger:           slog.Default().With("component", "upload"),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Validate checks a payload described by its filename and size. A negative
// size means the size is unknown and the size check is skipped.
func (v *Validator) Validate(filename string, size int64) Verdict {
	if filename == "" {
		return Verdict{Reason: "no filename provided"}
	}
	if v.ignore.Match(filename) {
		return Verdict{Reason: "file matches ignore patterns"}
	}
	if size >= 0 && size > v.maxFileSizeBytes {
		return Verdict{Reason: fmt.Sprintf("file exceeds %dMB limit", v.maxFileSizeBytes/(1024*1024))}
	}
	return Verdict{OK: true}
}
