package scratch

import "errors"

var (
	// ErrRootRequired is returned when a manager is created without a root directory.
	ErrRootRequired = errors.New("scratch root directory required")

	// ErrPathEscapes is returned when a file name would resolve outside its scratch directory.
	ErrPathEscapes = errors.New("path escapes scratch directory")
)
