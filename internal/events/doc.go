// Package events provides a typed publish/subscribe channel with one-shot,
// debounced, and predicate-wait subscriptions.
//
// # Subscriptions
//
// A [Channel] fans each emission out to the listeners registered for that
// event name, in registration order. Four subscription lifecycles exist:
//
//  1. Persistent : [Channel.Subscribe] — fires on every emission until
//     unsubscribed.
//  2. One-shot : [Channel.SubscribeOnce] — removed at its first emission,
//     before the listener runs.
//  3. Debounced : [Channel.Subscribe] with [WithDebounce] — rapid emissions
//     are coalesced; the listener fires with the latest payload once the
//     window elapses with no further emission.
//  4. Delayed one-shot : [Channel.SubscribeOnce] with [WithDebounce] —
//     removed at its first emission, then fires once after the window.
//
// Removal ordering for one-shot listeners is load-bearing: a burst of
// emissions during a debounce window can never produce a second invocation
// or leave a live subscription behind.
//
// # Waiting
//
// [Channel.WaitFor] blocks until an emission satisfies a predicate, the
// timeout lapses ([ErrWaitTimeout]), or the context ends. The temporary
// subscription is always removed before WaitFor returns.
//
// # Failure Isolation
//
// A panicking listener never stops the remaining listeners of the same
// emission. Panics are recovered and logged.
package events
