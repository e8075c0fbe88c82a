package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDFromContent(t *testing.T) {
	a := ChunkIDFromContent("func main() {}")
	b := ChunkIDFromContent("func main() {}")
	c := ChunkIDFromContent("func other() {}")

	assert.Equal(t, a, b, "identical content must produce identical IDs")
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, TaskPending.IsTerminal())
	assert.False(t, TaskRunning.IsTerminal())
	assert.True(t, TaskCompleted.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
	assert.True(t, TaskCancelled.IsTerminal())
}

func TestFileResultConstructors(t *testing.T) {
	chunks := []*Chunk{{Content: "x"}}

	r := ChunkedResult("a.py", chunks)
	assert.Equal(t, OutcomeChunked, r.Outcome)
	assert.Equal(t, "a.py", r.FilePath)
	assert.Len(t, r.Chunks, 1)
	assert.Empty(t, r.Reason)

	s := SkippedResult("b.png", "not a text file")
	assert.Equal(t, OutcomeSkipped, s.Outcome)
	assert.Equal(t, "not a text file", s.Reason)
	assert.Empty(t, s.Chunks)

	f := FailedResult("c.go", "boom")
	assert.Equal(t, OutcomeFailed, f.Outcome)
	assert.Equal(t, "boom", f.Reason)
}
