package mq

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"fraudscore/internal/observability"
)

// Handler processes one request body and returns the response body. A
// Handler converts deterministic scoring faults into an error response
// itself; an error return here means the request could not be processed and
// should be left to the transport's redelivery policy.
type Handler interface {
	Handle(ctx context.Context, body []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, body []byte) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, body []byte) ([]byte, error) {
	return f(ctx, body)
}

// Worker consumes scoring requests and publishes correlated responses. A
// request is acknowledged only after its response has been published, so a
// crash in between results in redelivery (at-least-once); scoring is a pure
// function of the request, so duplicate scoring is harmless.
type Worker struct {
	transport   WorkerTransport
	handler     Handler
	concurrency int
	logger      *log.Logger
}

// NewWorker creates a worker. concurrency bounds the goroutines evaluating
// models in parallel; the transport's prefetch bounds messages in flight.
func NewWorker(transport WorkerTransport, handler Handler, concurrency int, logger *log.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[worker] ", log.LstdFlags)
	}
	return &Worker{
		transport:   transport,
		handler:     handler,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run consumes until the context is canceled or the transport closes. A
// failing message never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-w.transport.Deliveries():
					if !ok {
						return
					}
					w.process(ctx, d)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// process handles one delivery and settles it exactly once.
func (w *Worker) process(ctx context.Context, d Delivery) {
	resp, err := w.handler.Handle(ctx, d.Body)
	if err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			// Poison message: reject without requeue so the transport can
			// dead-letter it.
			w.logger.Printf("malformed request (corr %s): %v", d.CorrelationID, err)
			observability.RecordMalformedMessage()
			w.settle(d.Nack, false, d.CorrelationID)
			return
		}
		// Transient failure: leave the message to be redelivered.
		w.logger.Printf("process request (corr %s): %v", d.CorrelationID, err)
		w.settle(d.Nack, true, d.CorrelationID)
		return
	}

	replyTo := d.ReplyTo
	if replyTo == "" {
		replyTo = ResponseQueue
	}
	out := Message{CorrelationID: d.CorrelationID, Body: resp}
	if err := w.transport.Publish(ctx, replyTo, out); err != nil {
		// Response not delivered; do not ack, the request will come back.
		w.logger.Printf("publish response (corr %s): %v", d.CorrelationID, err)
		w.settle(d.Nack, true, d.CorrelationID)
		return
	}

	if err := d.Ack(); err != nil {
		w.logger.Printf("ack (corr %s): %v", d.CorrelationID, err)
	}
}

// settle nacks a delivery, logging rather than failing on a broken channel.
func (w *Worker) settle(nack func(requeue bool) error, requeue bool, corrID string) {
	if err := nack(requeue); err != nil {
		w.logger.Printf("nack (corr %s): %v", corrID, err)
	}
}
