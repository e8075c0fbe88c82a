package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ChunkID is a unique identifier for a stored chunk.
// It is derived from chunk content and provenance with content-based hashing,
// so identical content from the same source produces the same ID.
type ChunkID uint64

// ChunkIDFromContent generates a deterministic ChunkID from text using BLAKE2b hashing.
func ChunkIDFromContent(text string) ChunkID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ChunkID(binary.LittleEndian.Uint64(sum))
}

// TaskStatus identifies where a background task is in its lifecycle.
type TaskStatus string

const (
	// TaskPending means the task is created but has not yet acquired an
	// execution slot.
	TaskPending TaskStatus = "pending"
	// TaskRunning means the task's unit of work is executing.
	TaskRunning TaskStatus = "running"
	// TaskCompleted means the unit of work returned successfully.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed means the unit of work returned an error.
	TaskFailed TaskStatus = "failed"
	// TaskCancelled means the task was stopped by a cancellation request.
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is final. A terminal status never
// changes again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is the record of one unit of asynchronous work. Identity is assigned
// at creation and is immutable. The task registry owns the record for its
// entire lifetime; callers only ever see snapshot copies.
//
// Invariants: CompletedAt is set iff Status is terminal; StartedAt is set iff
// the task is or was running.
type Task struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Status       TaskStatus        `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Progress     float64           `json:"progress"`
	Result       any               `json:"result,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Chunk is one splitter-produced piece of a source document, carrying
// provenance metadata. The Vector field is populated by the storage layer
// before persisting; it is empty while the chunk moves through the pipeline.
type Chunk struct {
	ID       ChunkID           `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Vector   []float32         `json:"vector,omitempty"`
}

// ScoredChunk pairs a chunk with its similarity score from a vector search.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float32 `json:"score"`
}

// Metadata keys every processed chunk carries.
const (
	MetaSourceFile          = "source_file"
	MetaFileType            = "file_type"
	MetaProcessingTimestamp = "processing_timestamp"
)

// FileOutcome tags the result of processing a single file.
type FileOutcome int

const (
	// OutcomeChunked means the file produced one or more chunks.
	OutcomeChunked FileOutcome = iota + 1
	// OutcomeSkipped means the file was rejected before processing for a
	// benign reason (non-text extension, over the size ceiling, empty).
	OutcomeSkipped
	// OutcomeFailed means processing was attempted and errored.
	OutcomeFailed
)

// FileResult is the outcome of processing one input file. It is produced
// once per file and never mutated after return. Chunks preserve the file's
// internal ordering.
type FileResult struct {
	FilePath string
	Outcome  FileOutcome
	Chunks   []*Chunk
	Reason   string // skip reason or error text; empty for OutcomeChunked
}

// ChunkedResult builds a successful result.
func ChunkedResult(path string, chunks []*Chunk) *FileResult {
	return &FileResult{FilePath: path, Outcome: OutcomeChunked, Chunks: chunks}
}

// SkippedResult builds a benign-skip result.
func SkippedResult(path, reason string) *FileResult {
	return &FileResult{FilePath: path, Outcome: OutcomeSkipped, Reason: reason}
}

// FailedResult builds an error result.
func FailedResult(path, reason string) *FileResult {
	return &FileResult{FilePath: path, Outcome: OutcomeFailed, Reason: reason}
}

// BatchOutcome aggregates the file results of one batch run. It is derived
// per batch and never stored.
//
// Success is false only when the chunk store rejected the write; individual
// file failures are reported through the counts instead.
type BatchOutcome struct {
	Success      bool          `json:"success"`
	Succeeded    int           `json:"succeeded"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Chunks       int           `json:"chunks"`
	Elapsed      time.Duration `json:"-"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// FileBatchStats is the submission-facing summary of an upload batch task,
// stored as the task result. A storage rejection does not fail the task;
// the per-file counts stay observable and Success carries the verdict.
type FileBatchStats struct {
	TotalFiles        int     `json:"total_files"`
	ProcessedChunks   int     `json:"processed_chunks"`
	SkippedFiles      int     `json:"skipped_files"`
	FailedFiles       int     `json:"failed_files"`
	ProcessingSeconds float64 `json:"processing_time_seconds"`
	Success           bool    `json:"success"`
	ErrorMessage      string  `json:"error_message,omitempty"`
}
