package mq

import (
	"Go_Share/config"
	"Go_Share/internal/task"
	"context"
	"errors"
	"fmt"
)

// ErrQueueClosed is returned by Publish after Close.
var ErrQueueClosed = errors.New("queue closed")

// Queue carries completion events from the transport to the ingest worker.
type Queue interface {
	Publish(ctx context.Context, event task.CompletionEvent) error
	// Consume delivers events in FIFO order until ctx is done or the queue
	// is closed. handle is called sequentially, one event at a time.
	Consume(ctx context.Context, handle func(context.Context, task.CompletionEvent)) error
	Close() error
}

// Open returns the queue backend selected by INGEST_QUEUE.
func Open(cfg config.Config) (Queue, error) {
	switch cfg.IngestQueue {
	case "", "memory":
		return NewChannelQueue(cfg.IngestQueueSize), nil
	case "rabbitmq":
		return NewRabbitQueue(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ingest queue %q", cfg.IngestQueue)
	}
}
