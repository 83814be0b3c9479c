package mq

import (
	"Go_Share/internal/task"
	"context"
	"sync"
)

// ChannelQueue is an in-process bounded FIFO. Events still buffered when the
// process exits are lost; tusd keeps the payload so only placement is skipped.
type ChannelQueue struct {
	events chan task.CompletionEvent
	done   chan struct{}
	once   sync.Once
}

// NewChannelQueue creates a queue holding up to size pending events.
func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 1
	}
	return &ChannelQueue{
		events: make(chan task.CompletionEvent, size),
		done:   make(chan struct{}),
	}
}

// Publish enqueues an event, blocking while the buffer is full.
func (q *ChannelQueue) Publish(ctx context.Context, event task.CompletionEvent) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.events <- event:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume runs handle for each event until ctx is done or Close is called.
func (q *ChannelQueue) Consume(ctx context.Context, handle func(context.Context, task.CompletionEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.done:
			return nil
		case event := <-q.events:
			handle(ctx, event)
		}
	}
}

// Len reports the number of buffered events.
func (q *ChannelQueue) Len() int {
	return len(q.events)
}

func (q *ChannelQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
