package ami

import (
	"context"
	"sync"
	"time"
)

// Future is the single-assignment handle returned by Send. Exactly one of
// the resolve paths fills it: the matching response message, a remote
// Response: Error, or a cancellation when the connection goes away.
type Future struct {
	done chan struct{}

	once     sync.Once
	response *Message
	err      error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (future *Future) resolve(response *Message) {
	future.once.Do(func() {
		future.response = response
		close(future.done)
	})
}

func (future *Future) fail(err error) {
	future.once.Do(func() {
		future.err = err
		close(future.done)
	})
}

// Done returns a channel closed when the future is resolved.
func (future *Future) Done() <-chan struct{} { return future.done }

// Wait blocks until the response arrives, the request fails, or the context
// ends. The future stays pending after a context timeout; a late response
// can still be collected with another Wait.
func (future *Future) Wait(ctx context.Context) (*Message, error) {
	select {
	case <-future.done:
		return future.response, future.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitTimeout is Wait with a plain duration deadline. A zero or negative
// timeout waits forever.
func (future *Future) WaitTimeout(timeout time.Duration) (*Message, error) {
	if timeout <= 0 {
		<-future.done
		return future.response, future.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-future.done:
		return future.response, future.err
	case <-timer.C:
		return nil, NewError(TimedOutError, "no response within "+timeout.String())
	}
}
