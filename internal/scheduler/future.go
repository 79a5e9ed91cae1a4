package scheduler

import "context"

// Future is the caller-visible handle to an operation submitted via Process.
// It settles exactly once, with the operation's result or its error.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// settle records the outcome and releases every waiter. Called once per
// future, from the completion path of its operation.
func (f *Future[T]) settle(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Wait blocks until the future settles and returns the outcome. Safe to call
// from multiple goroutines and more than once.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// WaitContext blocks like Wait but returns early with ctx.Err() when the
// context ends first. The underlying operation keeps running either way.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
