package ingest

import "errors"

var (
	// ErrRepositoryRequired is returned when NewService is given a nil
	// chunk repository.
	ErrRepositoryRequired = errors.New("chunk repository is required")

	// ErrAIProviderRequired is returned when NewService is given a nil AI
	// provider.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrEmptyQuestion is returned when Query is given an empty question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
