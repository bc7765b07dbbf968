// Package taskqueue implements the deferred task queues that carry GPU work
// from producer goroutines onto the rendering goroutine.
//
// A Queue is filled from any goroutine with Enqueue and emptied by Drain,
// which only the rendering goroutine calls. Drain detaches the pending tasks
// under the lock and runs them with the lock released, so a task may itself
// enqueue more work; that work runs on the next Drain.
package taskqueue

import (
	"errors"
	"fmt"
	"sync"
)

// Kind classifies a task. The renderer uses it for throttling and logging.
type Kind uint8

// Task kinds.
const (
	KindCustom Kind = iota
	KindImageUpload
	KindCaptureUpload
	KindImageDelete
	KindFilterSwap
	KindCaptureSetup
	KindState
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCustom:
		return "custom"
	case KindImageUpload:
		return "image-upload"
	case KindCaptureUpload:
		return "capture-upload"
	case KindImageDelete:
		return "image-delete"
	case KindFilterSwap:
		return "filter-swap"
	case KindCaptureSetup:
		return "capture-setup"
	case KindState:
		return "state"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Task is a unit of deferred work.
type Task interface {
	Kind() Kind
	Run() error
}

// Func adapts a function to the Task interface.
type Func struct {
	K  Kind
	Fn func() error
}

// Kind implements Task.
func (f Func) Kind() Kind { return f.K }

// Run implements Task. A nil Fn does nothing.
func (f Func) Run() error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn()
}

// New returns a task of kind k running fn.
func New(k Kind, fn func() error) Task {
	return Func{K: k, Fn: fn}
}

// ErrPanic wraps a panic recovered from a task.
var ErrPanic = errors.New("taskqueue: task panicked")

// TaskError reports a failed task.
type TaskError struct {
	Kind Kind
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("taskqueue: %s task: %v", e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Queue is a FIFO of tasks.
//
// Enqueue, Len, IsEmpty and Pending are safe for concurrent use.
// Drain must only be called from a single goroutine at a time.
type Queue struct {
	mu      sync.Mutex
	tasks   []Task
	spare   []Task
	onError func(*TaskError)
}

// NewQueue returns an empty queue. onError, if non-nil, is called for every
// failed task during Drain, in order.
func NewQueue(onError func(*TaskError)) *Queue {
	return &Queue{onError: onError}
}

// Enqueue appends t to the queue. Nil tasks are ignored.
func (q *Queue) Enqueue(t Task) {
	if t == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

// EnqueueFunc is shorthand for Enqueue(New(k, fn)).
func (q *Queue) EnqueueFunc(k Kind, fn func() error) {
	q.Enqueue(New(k, fn))
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// IsEmpty reports whether no task is pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Pending returns the number of pending tasks of kind k.
func (q *Queue) Pending(k Kind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.tasks {
		if t.Kind() == k {
			n++
		}
	}
	return n
}

// Drain runs every task pending at the time of the call, in FIFO order.
// A task that returns an error or panics is skipped; the remaining tasks
// still run. Drain returns the number of tasks run and the joined errors.
func (q *Queue) Drain() (int, error) {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		q.recycle(batch)
		return 0, nil
	}

	var errs []error
	for i, t := range batch {
		if err := run(t); err != nil {
			te := &TaskError{Kind: t.Kind(), Err: err}
			if q.onError != nil {
				q.onError(te)
			}
			errs = append(errs, te)
		}
		batch[i] = nil
	}
	n := len(batch)
	q.recycle(batch)
	return n, errors.Join(errs...)
}

// recycle keeps the drained backing array for the next swap.
func (q *Queue) recycle(batch []Task) {
	q.mu.Lock()
	if q.spare == nil {
		q.spare = batch[:0]
	}
	q.mu.Unlock()
}

// Clear drops every pending task without running it and returns how many
// were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	for i := range q.tasks {
		q.tasks[i] = nil
	}
	q.tasks = q.tasks[:0]
	return n
}

func run(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return t.Run()
}
