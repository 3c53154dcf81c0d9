package ami

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultStreamDepth = 64

// EventStream is a pull-style alternative to callback subscriptions: it
// buffers matching events in arrival order for the caller to consume at
// its own pace. When the buffer is full, new events are dropped rather
// than ever backing up into the dispatcher.
type EventStream struct {
	client  *Client
	sub     *Subscription
	queue   chan *Message
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// Stream subscribes to an event name and returns a stream over its
// messages. A depth of zero uses a reasonable default buffer.
func (client *Client) Stream(event string, depth int) *EventStream {
	if depth <= 0 {
		depth = defaultStreamDepth
	}
	stream := &EventStream{
		client: client,
		queue:  make(chan *Message, depth),
		closed: make(chan struct{}),
	}
	stream.sub = client.On(event, stream.push)
	return stream
}

func (stream *EventStream) push(event *Message) {
	select {
	case <-stream.closed:
	case stream.queue <- event:
	default:
		stream.dropped.Add(1)
		stream.client.logger.Debug("event stream full, dropping event",
			"event", stream.sub.Event())
	}
}

// Next blocks for the next buffered event. It returns false once the
// stream is closed and drained, or when the context ends.
func (stream *EventStream) Next(ctx context.Context) (*Message, bool) {
	select {
	case event := <-stream.queue:
		return event, true
	default:
	}

	select {
	case event := <-stream.queue:
		return event, true
	case <-stream.closed:
		// Drain anything raced in before the close.
		select {
		case event := <-stream.queue:
			return event, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (stream *EventStream) Dropped() uint64 { return stream.dropped.Load() }

// Close unsubscribes the stream and wakes any blocked Next caller. It is
// safe to call more than once.
func (stream *EventStream) Close() {
	stream.closeOnce.Do(func() {
		stream.client.Off(stream.sub)
		close(stream.closed)
	})
}
