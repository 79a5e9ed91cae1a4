// package scheduler implements bounded-concurrency, priority-aware execution for asynchronous operations.
//
// The core abstractions are Queue, an ordered holding area with insertion-time
// exclusion filters, and Scheduler, which drains the queue into a fixed number
// of concurrently running operations, bridging each to a caller-visible Future.
package scheduler

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harvmaster/GooglePhotosDownloader/internal/events"
)

// Queue lifecycle event names.
const (
	EventItemAdded   = "item-added"
	EventItemRemoved = "item-removed"
)

// QueueEvent is the payload carried by queue lifecycle events.
type QueueEvent[T any] struct {
	Item     T
	Priority int
}

// Entry is a queued item together with its priority.
type Entry[T any] struct {
	Item     T
	Priority int    // lower value dequeues first
	seq      uint64 // insertion order, breaks priority ties
}

// Filter is an exclusion predicate. An item is rejected when any registered
// filter returns true for it.
type Filter[T any] func(item T) bool

// FilterHandle identifies a registered filter for later removal.
type FilterHandle string

// entryHeap orders entries by (priority, insertion sequence).
type entryHeap[T any] []*Entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) { *h = append(*h, x.(*Entry[T])) }

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// Queue holds pending work items and enforces admission and ordering policy.
//
// Items dequeue lowest priority value first, FIFO within equal priorities.
// Exclusion filters are consulted only at insertion time. Accepted insertions
// and removals emit events on the queue's channel; filtered items leave no
// trace. Construct with NewQueue.
type Queue[T comparable] struct {
	mu       sync.Mutex
	pending  entryHeap[T]
	filters  map[FilterHandle]Filter[T]
	order    []FilterHandle // filter evaluation order
	nextSeq  uint64
	accepted uint64
	channel  *events.Channel[QueueEvent[T]]
}

// NewQueue creates an empty queue. The logger covers listener failures on the
// queue's event channel; nil silences them.
func NewQueue[T comparable](logger *log.Logger) *Queue[T] {
	return &Queue[T]{
		filters: make(map[FilterHandle]Filter[T]),
		channel: events.NewChannel[QueueEvent[T]](logger),
	}
}

// Events exposes the queue's lifecycle channel for subscription.
func (q *Queue[T]) Events() *events.Channel[QueueEvent[T]] {
	return q.channel
}

// AddFilter registers an exclusion predicate and returns its handle.
func (q *Queue[T]) AddFilter(f Filter[T]) FilterHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	handle := FilterHandle(uuid.New().String())
	q.filters[handle] = f
	q.order = append(q.order, handle)
	return handle
}

// RemoveFilter deregisters the filter identified by handle. No-op when absent.
func (q *Queue[T]) RemoveFilter(handle FilterHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.filters[handle]; !ok {
		return
	}
	delete(q.filters, handle)
	for i, h := range q.order {
		if h == handle {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// AddItem appends item at the given priority and reports whether it was
// accepted. An item excluded by any filter is dropped without mutating state
// or emitting an event. Accepted items increment the lifetime counter and
// emit "item-added".
func (q *Queue[T]) AddItem(item T, priority int) bool {
	q.mu.Lock()
	for _, handle := range q.order {
		if q.filters[handle](item) {
			q.mu.Unlock()
			return false
		}
	}

	entry := &Entry[T]{Item: item, Priority: priority, seq: q.nextSeq}
	q.nextSeq++
	q.accepted++
	heap.Push(&q.pending, entry)
	q.mu.Unlock()

	q.channel.Emit(EventItemAdded, QueueEvent[T]{Item: item, Priority: priority})
	return true
}

// RemoveItem removes the first pending entry equal to item and reports
// whether one was found. Removal emits "item-removed" and never touches the
// lifetime counter.
func (q *Queue[T]) RemoveItem(item T) bool {
	q.mu.Lock()
	index := -1
	for i, entry := range q.pending {
		if entry.Item == item {
			index = i
			break
		}
	}
	if index < 0 {
		q.mu.Unlock()
		return false
	}
	entry := heap.Remove(&q.pending, index).(*Entry[T])
	q.mu.Unlock()

	q.channel.Emit(EventItemRemoved, QueueEvent[T]{Item: entry.Item, Priority: entry.Priority})
	return true
}

// NextItem removes and returns the entry with the numerically smallest
// priority, insertion order within ties. The second return is false when the
// queue is empty.
func (q *Queue[T]) NextItem() (Entry[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Entry[T]{}, false
	}
	entry := heap.Pop(&q.pending).(*Entry[T])
	return *entry, true
}

// HasItems reports whether any entries are pending.
func (q *Queue[T]) HasItems() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) > 0
}

// Len returns the number of pending entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// TotalAccepted returns the lifetime count of accepted insertions. The
// counter never decreases; removals do not affect it.
func (q *Queue[T]) TotalAccepted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.accepted
}

// Pending returns a snapshot of the pending entries in dequeue order. The
// snapshot does not track later mutations.
func (q *Queue[T]) Pending() []Entry[T] {
	q.mu.Lock()
	snapshot := make([]Entry[T], len(q.pending))
	for i, entry := range q.pending {
		snapshot[i] = *entry
	}
	q.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Priority != snapshot[j].Priority {
			return snapshot[i].Priority < snapshot[j].Priority
		}
		return snapshot[i].seq < snapshot[j].seq
	})
	return snapshot
}
