package upload

import "errors"

var (
	// ErrScratchManagerRequired is returned when a router is created without a scratch manager.
	ErrScratchManagerRequired = errors.New("scratch manager required")
)
