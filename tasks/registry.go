// Copyright 2025 The Code Chatter Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package tasks

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/89jobrien/code-chatter/core"
)

const (
	defaultMaxConcurrent = 3
	defaultRetention     = time.Hour
)

// WorkFunc is one unit of asynchronous work. It must observe ctx to stop
// promptly on cancellation; cancellation is cooperative, not preemptive.
type WorkFunc func(ctx context.Context) (any, error)

// Registry assigns identities to units of asynchronous work, tracks their
// state machine, and runs them under a global admission ceiling. Task
// records live in process memory only and do not survive restart.
//
// The registry map is the only state mutated by concurrent units of work;
// every transition happens under the registry lock, so a reader can never
// observe a half-updated record.
type Registry struct {
	mu        sync.RWMutex
	records   map[string]*core.Task
	order     []string // insertion order for stable listing
	cancels   map[string]context.CancelFunc
	admission *semaphore.Weighted
	maxSlots  int64
	retention time.Duration
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxConcurrent sets the global task concurrency ceiling. Default is 3.
func WithMaxConcurrent(n int) Option {
	return func(r *Registry) {
		if n < 1 {
			n = 1
		}
		r.maxSlots = int64(n)
	}
}

// WithRetention sets how long terminal records are kept before Sweep
// removes them. Default is one hour.
func WithRetention(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry with the default admission ceiling and
// retention window.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records:   make(map[string]*core.Task),
		cancels:   make(map[string]context.CancelFunc),
		maxSlots:  defaultMaxConcurrent,
		retention: defaultRetention,
		logger:    slog.Default().With("component", "tasks"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.admission = semaphore.NewWeighted(r.maxSlots)
	return r
}

// SubmitOption configures one submission.
type SubmitOption func(*submission)

type submission struct {
	cleanup func()
}

// WithCleanup attaches a finalizer that runs exactly once when the task
// reaches a terminal state, on every path, including a cancellation that
// lands before the unit of work ever runs. Resources created at submission
// time must be released here, not inside the unit of work.
func WithCleanup(fn func()) SubmitOption {
	return func(s *submission) {
		s.cleanup = fn
	}
}

// Submit registers a unit of work and begins executing it asynchronously.
// The returned id is usable immediately for Get and Cancel. Errors from the
// unit of work never propagate to the caller; they are observed only through
// the task record.
func (r *Registry) Submit(ctx context.Context, name string, fn WorkFunc, opts ...SubmitOption) string {
	var sub submission
	for _, opt := range opts {
		opt(&sub)
	}

	id := uuid.NewString()
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	r.records[id] = &core.Task{
		ID:        id,
		Name:      name,
		Status:    core.TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	r.order = append(r.order, id)
	r.cancels[id] = cancel
	r.mu.Unlock()

	r.logger.Info("created background task", "name", name, "task_id", id)
	go r.execute(taskCtx, id, name, fn, sub.cleanup)
	return id
}

// execute drives one task through its state machine.
func (r *Registry) execute(ctx context.Context, id, name string, fn WorkFunc, cleanup func()) {
	// Live-task bookkeeping is cleared unconditionally so a task can never
	// appear live after its unit of work has returned. The submission's
	// finalizer runs here so it fires even when the unit of work never does.
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.cancels[id]; ok {
			cancel()
			delete(r.cancels, id)
		}
		r.mu.Unlock()

		if cleanup != nil {
			cleanup()
		}
	}()

	// Wait for an admission slot; the task stays pending until one frees.
	if err := r.admission.Acquire(ctx, 1); err != nil {
		r.transition(id, func(task *core.Task) {
			task.Status = core.TaskCancelled
			now := time.Now().UTC()
			task.CompletedAt = &now
		})
		r.logger.Warn("background task cancelled while pending", "name", name, "task_id", id)
		return
	}
	defer r.admission.Release(1)

	r.transition(id, func(task *core.Task) {
		task.Status = core.TaskRunning
		now := time.Now().UTC()
		task.StartedAt = &now
	})
	r.logger.Info("starting background task", "name", name, "task_id", id)

	result, err := r.run(ctx, fn)

	switch {
	case err == nil:
		r.transition(id, func(task *core.Task) {
			task.Status = core.TaskCompleted
			now := time.Now().UTC()
			task.CompletedAt = &now
			task.Progress = 100
			task.Result = result
		})
		r.logger.Info("background task completed", "name", name, "task_id", id)

	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		r.transition(id, func(task *core.Task) {
			task.Status = core.TaskCancelled
			now := time.Now().UTC()
			task.CompletedAt = &now
		})
		r.logger.Warn("background task cancelled", "name", name, "task_id", id)

	default:
		r.transition(id, func(task *core.Task) {
			task.Status = core.TaskFailed
			now := time.Now().UTC()
			task.CompletedAt = &now
			task.ErrorMessage = err.Error()
		})
		r.logger.Error("background task failed", "name", name, "task_id", id, "err", err)
	}
}

// run invokes the unit of work, converting a panic into an error so a
// panicking task cannot take the process down or wedge an admission slot.
func (r *Registry) run(ctx context.Context, fn WorkFunc) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()
	return fn(ctx)
}

// transition applies mutate to the task record under the lock. Terminal
// records are never modified again.
func (r *Registry) transition(id string, mutate func(*core.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.records[id]
	if !ok || task.Status.IsTerminal() {
		return
	}
	mutate(task)
}

// Get returns a point-in-time snapshot of the task record.
func (r *Registry) Get(id string) (core.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.records[id]
	if !ok {
		return core.Task{}, false
	}
	return snapshot(task), true
}

// List returns snapshots of task records in creation order. When
// includeTerminal is false only pending and running tasks are returned.
func (r *Registry) List(includeTerminal bool) []core.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Task, 0, len(r.order))
	for _, id := range r.order {
		task, ok := r.records[id]
		if !ok {
			continue
		}
		if !includeTerminal && task.Status.IsTerminal() {
			continue
		}
		out = append(out, snapshot(task))
	}
	return out
}

// Cancel requests cancellation of a still-live task. It returns whether a
// live unit of work existed. The unit of work must observe its context for
// the cancellation to take effect promptly.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	r.logger.Info("cancelled background task", "task_id", id)
	return true
}

// Sweep removes terminal records older than the configured retention
// window and returns how many were removed. Non-terminal tasks are never
// touched.
func (r *Registry) Sweep() int {
	return r.SweepOlderThan(r.retention)
}

// SweepOlderThan removes terminal records whose completion is older than
// the given window.
func (r *Registry) SweepOlderThan(window time.Duration) int {
	cutoff := time.Now().UTC().Add(-window)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	kept := r.order[:0]
	for _, id := range r.order {
		task, ok := r.records[id]
		if !ok {
			continue
		}
		if task.Status.IsTerminal() && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			delete(r.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept

	if removed > 0 {
		r.logger.Info("swept expired task records", "count", removed)
	}
	return removed
}

// Stats summarizes the registry for diagnostics.
type Stats struct {
	Total        int                     `json:"total_tasks"`
	Live         int                     `json:"live_tasks"`
	StatusCounts map[core.TaskStatus]int `json:"status_counts"`
	MaxSlots     int                     `json:"max_concurrent"`
	FreeSlots    int                     `json:"free_slots"`
}

// Stats returns current registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[core.TaskStatus]int)
	for _, task := range r.records {
		counts[task.Status]++
	}
	free := int(r.maxSlots) - counts[core.TaskRunning]
	if free < 0 {
		free = 0
	}
	return Stats{
		Total:        len(r.records),
		Live:         len(r.cancels),
		StatusCounts: counts,
		MaxSlots:     int(r.maxSlots),
		FreeSlots:    free,
	}
}

// snapshot copies a record so callers never share memory with the registry.
func snapshot(task *core.Task) core.Task {
	copied := *task
	if task.Metadata != nil {
		copied.Metadata = maps.Clone(task.Metadata)
	}
	return copied
}
