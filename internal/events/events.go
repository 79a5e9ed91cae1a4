// package events implements a typed publish/subscribe primitive for in-process signaling.
//
// The core abstraction is Channel, which fans emissions out to registered listeners
// and bridges event streams to blocking callers via WaitFor.
package events

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrWaitTimeout reports that WaitFor saw no qualifying payload within its deadline.
var ErrWaitTimeout = fmt.Errorf("wait timed out")

// Listener receives the payload of an emission.
type Listener[T any] func(payload T)

// Handle identifies a subscription for later removal.
type Handle string

// subKind tags the lifecycle of a subscription.
type subKind int

const (
	kindPersistent    subKind = iota // fires on every emission
	kindOnce                         // removed at first emission, before the listener runs
	kindDebounced                    // fires with the latest payload after the window goes quiet
	kindDebouncedOnce                // removed at first emission, fires once after the window
)

// subscription pairs a listener with its lifecycle kind.
type subscription[T any] struct {
	id      Handle
	fn      Listener[T]
	kind    subKind
	window  time.Duration // debounce window, zero when not debounced
	timer   *time.Timer   // pending debounce fire, nil when idle
	gen     uint64        // bumped per emission so a stopped timer cannot still deliver
	pending T             // latest payload within the window
}

// subscribeConfig collects registration-time options.
type subscribeConfig struct {
	window time.Duration
}

// SubscribeOption configures a subscription at registration time.
type SubscribeOption func(*subscribeConfig)

// WithDebounce coalesces rapid emissions so the listener fires only after
// window elapses with no further emission. The latest payload wins.
func WithDebounce(window time.Duration) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.window = window
	}
}

// Channel is a typed event bus. The zero value is not usable; construct with NewChannel.
//
// Emissions are synchronous and ordered, subscriptions may be added or removed
// from listeners mid-emission, and listener panics are isolated per listener.
type Channel[T any] struct {
	mu     sync.Mutex
	subs   map[string][]*subscription[T]
	logger *log.Logger
}

// NewChannel creates an empty Channel. A nil logger silences listener panic reports.
func NewChannel[T any](logger *log.Logger) *Channel[T] {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Channel[T]{
		subs:   make(map[string][]*subscription[T]),
		logger: logger,
	}
}

// Subscribe registers a persistent listener for event and returns its handle.
func (c *Channel[T]) Subscribe(event string, fn Listener[T], opts ...SubscribeOption) Handle {
	return c.register(event, fn, kindPersistent, kindDebounced, opts)
}

// SubscribeOnce registers a listener that fires at most once.
//
// The subscription is removed at the first emission, before the listener
// executes. With a debounce window the removal still happens at emission
// time, so further emissions during the delay cannot fire it again.
func (c *Channel[T]) SubscribeOnce(event string, fn Listener[T], opts ...SubscribeOption) Handle {
	return c.register(event, fn, kindOnce, kindDebouncedOnce, opts)
}

// register appends a subscription, promoting plain to its debounced kind when a window is set.
func (c *Channel[T]) register(event string, fn Listener[T], plain, windowed subKind, opts []SubscribeOption) Handle {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := &subscription[T]{
		id:     Handle(uuid.New().String()),
		fn:     fn,
		kind:   plain,
		window: cfg.window,
	}
	if cfg.window > 0 {
		sub.kind = windowed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[event] = append(c.subs[event], sub)
	return sub.id
}

// Unsubscribe removes the subscription identified by handle. No-op when absent.
// A pending debounced fire for the subscription is cancelled.
func (c *Channel[T]) Unsubscribe(event string, handle Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(event, handle)
}

// remove deletes a subscription in place, preserving registration order. Caller holds mu.
func (c *Channel[T]) remove(event string, handle Handle) {
	list := c.subs[event]
	for i, sub := range list {
		if sub.id != handle {
			continue
		}
		if sub.timer != nil {
			sub.timer.Stop()
			sub.timer = nil
		}
		c.subs[event] = append(list[:i], list[i+1:]...)
		if len(c.subs[event]) == 0 {
			delete(c.subs, event)
		}
		return
	}
}

// Emit synchronously notifies every listener currently registered for event,
// in registration order, and reports whether any subscriber existed.
//
// One-shot subscriptions are unregistered before their listener runs.
// Debounced subscriptions only have their window restarted here; the
// listener fires later, from the timer.
func (c *Channel[T]) Emit(event string, payload T) bool {
	c.mu.Lock()
	list := c.subs[event]
	if len(list) == 0 {
		c.mu.Unlock()
		return false
	}

	// Snapshot under the lock so listeners can re-enter the channel.
	immediate := make([]*subscription[T], 0, len(list))
	for _, sub := range append([]*subscription[T](nil), list...) {
		switch sub.kind {
		case kindPersistent:
			immediate = append(immediate, sub)
		case kindOnce:
			c.remove(event, sub.id)
			immediate = append(immediate, sub)
		case kindDebounced:
			sub.pending = payload
			sub.gen++
			if sub.timer != nil {
				sub.timer.Stop()
			}
			sub.timer = time.AfterFunc(sub.window, c.debounceFire(event, sub, sub.gen))
		case kindDebouncedOnce:
			c.remove(event, sub.id)
			delayed := *sub
			time.AfterFunc(sub.window, func() {
				c.invoke(event, delayed.id, delayed.fn, payload)
			})
		}
	}
	c.mu.Unlock()

	for _, sub := range immediate {
		c.invoke(event, sub.id, sub.fn, payload)
	}
	return true
}

// debounceFire builds the timer callback that delivers the coalesced payload
// if the subscription is still registered, and still on the same emission
// generation, when the window elapses. A stopped timer whose callback already
// started cannot deliver a superseded payload.
func (c *Channel[T]) debounceFire(event string, sub *subscription[T], gen uint64) func() {
	return func() {
		c.mu.Lock()
		registered := false
		for _, s := range c.subs[event] {
			if s.id == sub.id {
				registered = true
				break
			}
		}
		if !registered || sub.gen != gen {
			c.mu.Unlock()
			return
		}
		payload := sub.pending
		sub.timer = nil
		c.mu.Unlock()

		c.invoke(event, sub.id, sub.fn, payload)
	}
}

// invoke runs a single listener with panic isolation.
func (c *Channel[T]) invoke(event string, id Handle, fn Listener[T], payload T) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("listener panicked", "event", event, "subscription", id, "panic", r)
		}
	}()
	fn(payload)
}

// WaitFor blocks until an emission of event satisfies pred, then returns that
// payload. A nil pred matches any payload.
//
// When timeout is positive and lapses first, WaitFor returns ErrWaitTimeout;
// a later emission cannot revive the call. A non-positive timeout waits until
// ctx ends. The temporary subscription is removed on every return path.
func (c *Channel[T]) WaitFor(ctx context.Context, event string, pred func(T) bool, timeout time.Duration) (T, error) {
	matched := make(chan T, 1)
	handle := c.Subscribe(event, func(payload T) {
		if pred != nil && !pred(payload) {
			return
		}
		select {
		case matched <- payload:
		default:
			// Already satisfied, drop extras
		}
	})
	defer c.Unsubscribe(event, handle)

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var zero T
	select {
	case payload := <-matched:
		return payload, nil
	case <-deadline:
		return zero, fmt.Errorf("%w: no %q payload within %s", ErrWaitTimeout, event, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
