// Package amqp implements the broker transports on RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"fraudscore/internal/mq"
)

// DialWithRetry connects to the broker, retrying with a fixed delay. The
// broker is commonly still starting when the services come up.
func DialWithRetry(url string, attempts int, delay time.Duration, logger *log.Logger) (*amqp091.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if logger != nil {
			logger.Printf("broker attempt %d/%d failed: %v", attempt, attempts, err)
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("broker not reachable after %d attempts: %w", attempts, lastErr)
}

// declareQueues declares the durable request and response queues.
func declareQueues(ch *amqp091.Channel) error {
	for _, name := range []string{mq.RequestQueue, mq.ResponseQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

// publish sends one persistent message.
func publish(ctx context.Context, ch *amqp091.Channel, queue string, msg mq.Message) error {
	err := ch.PublishWithContext(ctx, "", queue, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: msg.CorrelationID,
		ReplyTo:       msg.ReplyTo,
		DeliveryMode:  amqp091.Persistent,
		Body:          msg.Body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// ClientTransport implements mq.ClientTransport on one AMQP channel. The
// channel serializes concurrent publishes, so calls from many goroutines
// never interleave frames.
type ClientTransport struct {
	conn      *amqp091.Connection
	ch        *amqp091.Channel
	responses chan mq.Message
}

// Compile-time interface check.
var _ mq.ClientTransport = (*ClientTransport)(nil)

// NewClientTransport opens a channel, declares the queues and starts
// consuming the response queue.
func NewClientTransport(conn *amqp091.Connection) (*ClientTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(mq.ResponseQueue, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", mq.ResponseQueue, err)
	}

	t := &ClientTransport{conn: conn, ch: ch, responses: make(chan mq.Message)}
	go func() {
		defer close(t.responses)
		for d := range deliveries {
			t.responses <- mq.Message{
				CorrelationID: d.CorrelationId,
				ReplyTo:       d.ReplyTo,
				Body:          d.Body,
			}
		}
	}()
	return t, nil
}

// Publish sends a request message.
func (t *ClientTransport) Publish(ctx context.Context, queue string, msg mq.Message) error {
	return publish(ctx, t.ch, queue, msg)
}

// Responses yields messages from the response queue.
func (t *ClientTransport) Responses() <-chan mq.Message {
	return t.responses
}

// Close closes the channel.
func (t *ClientTransport) Close() error {
	return t.ch.Close()
}

// WorkerTransport implements mq.WorkerTransport with a prefetch-bounded
// consumer on the request queue.
type WorkerTransport struct {
	conn       *amqp091.Connection
	ch         *amqp091.Channel
	deliveries chan mq.Delivery
}

// Compile-time interface check.
var _ mq.WorkerTransport = (*WorkerTransport)(nil)

// NewWorkerTransport opens a channel with the given prefetch limit and
// starts consuming the request queue with manual acknowledgement.
func NewWorkerTransport(conn *amqp091.Connection, prefetch int) (*WorkerTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(mq.RequestQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", mq.RequestQueue, err)
	}

	t := &WorkerTransport{conn: conn, ch: ch, deliveries: make(chan mq.Delivery)}
	go func() {
		defer close(t.deliveries)
		for d := range deliveries {
			d := d
			t.deliveries <- mq.Delivery{
				Message: mq.Message{
					CorrelationID: d.CorrelationId,
					ReplyTo:       d.ReplyTo,
					Body:          d.Body,
				},
				Ack:  func() error { return d.Ack(false) },
				Nack: func(requeue bool) error { return d.Nack(false, requeue) },
			}
		}
	}()
	return t, nil
}

// Deliveries yields requests from the request queue.
func (t *WorkerTransport) Deliveries() <-chan mq.Delivery {
	return t.deliveries
}

// Publish sends a response message.
func (t *WorkerTransport) Publish(ctx context.Context, queue string, msg mq.Message) error {
	return publish(ctx, t.ch, queue, msg)
}

// Close closes the channel.
func (t *WorkerTransport) Close() error {
	return t.ch.Close()
}
