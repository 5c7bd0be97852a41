// Package memory implements the broker transports on in-process channels.
// It backs tests and the -use-memory mode where the pipeline runs as a
// single process without RabbitMQ.
package memory

import (
	"context"
	"sync"

	"fraudscore/internal/mq"
)

// queueCapacity bounds each in-process queue, standing in for the broker's
// flow control.
const queueCapacity = 128

// Broker routes messages between named in-process queues.
type Broker struct {
	mu       sync.Mutex
	queues   map[string]chan mq.Message
	closed   bool
	done     chan struct{}
	inflight sync.WaitGroup
}

// NewBroker creates a broker with the request and response queues declared.
func NewBroker() *Broker {
	b := &Broker{
		queues: make(map[string]chan mq.Message),
		done:   make(chan struct{}),
	}
	b.queue(mq.RequestQueue)
	b.queue(mq.ResponseQueue)
	return b
}

func (b *Broker) queue(name string) chan mq.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan mq.Message, queueCapacity)
		b.queues[name] = q
	}
	return q
}

func (b *Broker) publish(ctx context.Context, name string, msg mq.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return mq.ErrClosed
	}
	q, ok := b.queues[name]
	if !ok {
		q = make(chan mq.Message, queueCapacity)
		b.queues[name] = q
	}
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	select {
	case q <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return mq.ErrClosed
	}
}

// Close unblocks in-flight publishers with ErrClosed, then closes every
// queue. Messages already enqueued are still drained by consumers.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.inflight.Wait()

	b.mu.Lock()
	for _, q := range b.queues {
		close(q)
	}
	b.mu.Unlock()
}

// ClientTransport implements mq.ClientTransport against the broker.
type ClientTransport struct {
	broker *Broker
}

// Compile-time interface check.
var _ mq.ClientTransport = (*ClientTransport)(nil)

// NewClientTransport attaches a client to the broker.
func NewClientTransport(b *Broker) *ClientTransport {
	return &ClientTransport{broker: b}
}

func (t *ClientTransport) Publish(ctx context.Context, queue string, msg mq.Message) error {
	return t.broker.publish(ctx, queue, msg)
}

func (t *ClientTransport) Responses() <-chan mq.Message {
	return t.broker.queue(mq.ResponseQueue)
}

func (t *ClientTransport) Close() error { return nil }

// WorkerTransport implements mq.WorkerTransport against the broker. Acks
// are recorded so tests can assert settlement; the broker itself never
// redelivers.
type WorkerTransport struct {
	broker *Broker

	mu       sync.Mutex
	acked    int
	nacked   int
	requeued int

	deliveries chan mq.Delivery
	once       sync.Once
}

// Compile-time interface check.
var _ mq.WorkerTransport = (*WorkerTransport)(nil)

// NewWorkerTransport attaches a worker to the broker.
func NewWorkerTransport(b *Broker) *WorkerTransport {
	return &WorkerTransport{broker: b, deliveries: make(chan mq.Delivery)}
}

func (t *WorkerTransport) Deliveries() <-chan mq.Delivery {
	t.once.Do(func() {
		go func() {
			defer close(t.deliveries)
			for msg := range t.broker.queue(mq.RequestQueue) {
				t.deliveries <- mq.Delivery{
					Message: msg,
					Ack: func() error {
						t.mu.Lock()
						t.acked++
						t.mu.Unlock()
						return nil
					},
					Nack: func(requeue bool) error {
						t.mu.Lock()
						t.nacked++
						if requeue {
							t.requeued++
						}
						t.mu.Unlock()
						return nil
					},
				}
			}
		}()
	})
	return t.deliveries
}

func (t *WorkerTransport) Publish(ctx context.Context, queue string, msg mq.Message) error {
	return t.broker.publish(ctx, queue, msg)
}

func (t *WorkerTransport) Close() error { return nil }

// Acked reports how many deliveries were acknowledged.
func (t *WorkerTransport) Acked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acked
}

// Nacked reports how many deliveries were rejected and how many of those
// asked for requeue.
func (t *WorkerTransport) Nacked() (total, requeued int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nacked, t.requeued
}
