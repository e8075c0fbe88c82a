// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Answerer,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run
// without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// The defaults are deterministic: MockEmbedder derives a vector from the
// text hash, so identical text always embeds identically, and MockAnswerer
// returns a canned answer naming the passage count. Both accept injected
// functions for custom behavior and expose call counts for assertions.
package mock
