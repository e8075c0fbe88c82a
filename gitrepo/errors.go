package gitrepo

import "errors"

var (
	// ErrClonerRequired is returned when NewIngestor is given a nil cloner.
	ErrClonerRequired = errors.New("cloner is required")

	// ErrScratchManagerRequired is returned when NewIngestor is given a nil
	// scratch manager.
	ErrScratchManagerRequired = errors.New("scratch manager is required")

	// ErrRunnerRequired is returned when NewIngestor is given a nil batch
	// runner.
	ErrRunnerRequired = errors.New("batch runner is required")

	// ErrCloneFailed indicates the git clone itself did not succeed.
	ErrCloneFailed = errors.New("git clone failed")

	// ErrEmptyRepository indicates a clone succeeded but contained no
	// processable files.
	ErrEmptyRepository = errors.New("repository contains no processable files")
)
