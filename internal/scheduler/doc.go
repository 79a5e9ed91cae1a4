// Package scheduler provides priority-ordered, bounded-concurrency execution
// of asynchronous operations.
//
// # Core Operations
//
// Work flows through two cooperating pieces:
//
//  1. [Queue] : an ordered holding area for pending items
//     - Entries dequeue lowest priority value first, insertion order within
//       a priority
//     - Exclusion filters reject items at insertion, silently
//     - Lifecycle events ("item-added", "item-removed") fan out on an
//       embedded events channel
//
//  2. [Scheduler] : admission-controlled execution
//     - [Process] submits an operation with a priority and returns a
//       [Future] immediately
//     - A dispatch step runs after every insertion and every settlement,
//       launching queued operations while slots remain
//     - A failing operation rejects only its own future; bookkeeping and
//       sibling operations are unaffected
//
// # Ordering
//
// Dispatch decisions order by (priority, insertion sequence) over the
// entries pending at that moment. An item added later can still run before
// an older, higher-valued entry on the next pass. Running operations are
// never preempted.
//
// # Composition
//
// Operations compose with [backoff.Retry] before submission when a caller
// wants deterministic retry; the scheduler itself never retries.
package scheduler
