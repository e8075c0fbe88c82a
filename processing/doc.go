// Package processing loads single files and splits them into chunks.
//
// Splitting is content-aware: code-like extensions get a recursive splitter
// seeded with syntax-aware separators for their language, everything else
// falls back to the neutral recursive splitter. Each chunk carries
// provenance metadata (source path, detected type, processing timestamp).
// Failures are isolated per file: Process never returns an error.
package processing
