package tasks

import "fmt"

// panicError wraps a recovered panic value from a unit of work so it can be
// reported through the task record like any other failure.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.value)
}
