package scheduler

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Priority values used across the application. Lower dequeues first.
const (
	PriorityIndex    = 0 // listing and indexing operations
	PriorityDownload = 1 // media downloads
)

// Operation is a cancellable unit of work producing a typed value or an error.
type Operation[T any] func(ctx context.Context) (T, error)

// task is the internal record pairing an operation with its settlement
// callback. It is the queue payload while pending and a member of the
// running set while executing.
type task struct {
	priority int
	run      func(ctx context.Context) (any, error)
	settle   func(value any, err error)
}

// Scheduler executes submitted operations with a fixed concurrency bound,
// draining its queue in (priority, insertion) order. Construct with
// NewScheduler.
//
// State transitions (enqueue, dispatch, settle) are serialized under one
// mutex; the operations themselves run concurrently outside it. A failing
// operation rejects only its own future and never blocks siblings or
// dispatch bookkeeping.
type Scheduler struct {
	maxConcurrency int
	baseCtx        context.Context
	logger         *log.Logger

	mu      sync.Mutex
	queue   *Queue[*task]
	running map[*task]struct{}
}

// NewScheduler creates a Scheduler running at most maxConcurrency operations
// at once. A bound below one is raised to one. The context is passed through
// to every operation; cancelling it is visible to operations but does not
// stop dispatch. A nil logger discards diagnostics.
func NewScheduler(ctx context.Context, maxConcurrency int, logger *log.Logger) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Scheduler{
		maxConcurrency: maxConcurrency,
		baseCtx:        ctx,
		logger:         logger,
		queue:          NewQueue[*task](logger),
		running:        make(map[*task]struct{}),
	}

	// Every accepted enqueue re-triggers dispatch so a free slot is never
	// left idle while work is pending.
	s.queue.Events().Subscribe(EventItemAdded, func(QueueEvent[*task]) {
		s.dispatch()
	})
	return s
}

// Process submits op at the given priority and immediately returns the
// future that settles when the operation completes or fails. Operation
// errors reach the future verbatim.
func Process[T any](s *Scheduler, priority int, op Operation[T]) *Future[T] {
	future := newFuture[T]()
	s.submit(&task{
		priority: priority,
		run: func(ctx context.Context) (any, error) {
			return op(ctx)
		},
		settle: func(value any, err error) {
			if err != nil {
				var zero T
				future.settle(zero, err)
				return
			}
			typed, _ := value.(T)
			future.settle(typed, nil)
		},
	})
	return future
}

// submit enqueues the task; the item-added subscription runs the dispatch step.
func (s *Scheduler) submit(t *task) {
	s.queue.AddItem(t, t.priority)
}

// dispatch moves queued tasks into the running set while the concurrency
// budget allows, launching each operation on its own goroutine. Invoked
// after every enqueue and after every settlement.
func (s *Scheduler) dispatch() {
	for {
		s.mu.Lock()
		if len(s.running) >= s.maxConcurrency {
			s.mu.Unlock()
			return
		}
		entry, ok := s.queue.NextItem()
		if !ok {
			s.mu.Unlock()
			return
		}
		t := entry.Item
		s.running[t] = struct{}{}
		s.mu.Unlock()

		go s.launch(t)
	}
}

// launch runs one task to completion, settles its future, and frees the slot.
func (s *Scheduler) launch(t *task) {
	value, err := t.run(s.baseCtx)
	if err != nil {
		s.logger.Debug("operation failed", "priority", t.priority, "error", err)
	}
	t.settle(value, err)

	s.mu.Lock()
	delete(s.running, t)
	s.mu.Unlock()

	s.dispatch()
}

// Running returns the number of operations currently executing.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Queued returns the number of operations waiting for a slot.
func (s *Scheduler) Queued() int {
	return s.queue.Len()
}

// InFlight returns queued plus running operations.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) + s.queue.Len()
}

// MaxConcurrency returns the bound fixed at construction.
func (s *Scheduler) MaxConcurrency() int {
	return s.maxConcurrency
}
