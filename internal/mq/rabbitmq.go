package mq

import (
	"Go_Share/config"
	"Go_Share/internal/task"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeIngest = "ingest.exchange"
	ExchangeDLQ    = "ingest.dlq.exchange"

	QueueIngest = "ingest.queue"
	QueueDLQ    = "ingest.dlq.queue"

	RoutingIngest = "ingest"
	RoutingDLQ    = "ingest.dlq"
)

type Client struct {
	Conn      *amqp.Connection //tcp
	Channel   *amqp.Channel    // AMQP
	publishMu sync.Mutex
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, Channel: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

func (c *Client) DeclareTopology() error {
	for _, exchange := range []string{ExchangeIngest, ExchangeDLQ} {
		if err := c.Channel.ExchangeDeclare(
			exchange,
			"direct",
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return err
		}
	}
	bindings := []struct{ queue, key, exchange string }{
		{QueueIngest, RoutingIngest, ExchangeIngest},
		{QueueDLQ, RoutingDLQ, ExchangeDLQ},
	}
	for _, b := range bindings {
		if _, err := c.Channel.QueueDeclare(
			b.queue,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return err
		}
		if err := c.Channel.QueueBind(
			b.queue,
			b.key,
			b.exchange,
			false,
			nil,
		); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    uuid.NewString(),
	}
	return c.Channel.PublishWithContext(
		ctx,
		exchange,
		key,
		false,
		false,
		msg,
	)
}

type dlqMessage struct {
	Body     string    `json:"body"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// RabbitQueue is the durable Queue backend used when the ingest worker runs
// as its own process.
type RabbitQueue struct {
	url      string
	prefetch int

	mu     sync.Mutex
	client *Client
}

func NewRabbitQueue(cfg config.Config) *RabbitQueue {
	return &RabbitQueue{url: cfg.RabbitMQURL, prefetch: cfg.RabbitMQPrefetch}
}

// publisher returns a live client, redialing when the connection dropped.
func (q *RabbitQueue) publisher() (*Client, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.client != nil {
		if !q.client.Conn.IsClosed() && !q.client.Channel.IsClosed() {
			return q.client, nil
		}
		q.client.Close()
		q.client = nil
	}
	client, err := Dial(q.url)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	q.client = client
	return client, nil
}

func (q *RabbitQueue) Publish(ctx context.Context, event task.CompletionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	client, err := q.publisher()
	if err != nil {
		return err
	}
	return client.publish(ctx, ExchangeIngest, RoutingIngest, body)
}

// Consume acks each delivery after handle returns. Bodies that do not decode
// are parked on the dead-letter queue.
func (q *RabbitQueue) Consume(ctx context.Context, handle func(context.Context, task.CompletionEvent)) error {
	client, err := Dial(q.url)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}
	prefetch := q.prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		QueueIngest,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("ingest queue: delivery channel closed")
			}
			var event task.CompletionEvent
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				log.Printf("ingest queue: invalid message: %v", err)
				q.deadLetter(ctx, client, delivery.Body, err)
				_ = delivery.Ack(false)
				continue
			}
			handle(ctx, event)
			_ = delivery.Ack(false)
		}
	}
}

func (q *RabbitQueue) deadLetter(ctx context.Context, client *Client, body []byte, cause error) {
	payload, err := json.Marshal(dlqMessage{
		Body:     string(body),
		Error:    cause.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		return
	}
	if err := client.publish(ctx, ExchangeDLQ, RoutingDLQ, payload); err != nil {
		log.Printf("ingest queue: dlq publish failed: %v", err)
	}
}

func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.client.Close()
	q.client = nil
	return nil
}
