package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"fraudscore/internal/domain"
	"fraudscore/internal/observability"
)

// DefaultCallTimeout bounds a scoring call end to end. Generous because
// scoring sits behind a network hop and the worker may be cold.
const DefaultCallTimeout = 30 * time.Second

// Client issues correlated scoring calls over a shared transport. Many
// goroutines may call Score concurrently; each call blocks only its caller.
type Client struct {
	transport ClientTransport
	logger    *log.Logger

	mu      sync.Mutex
	pending map[string]chan *domain.ScoreResponse
	done    chan struct{}
}

// NewClient creates a client and starts its response consumer.
func NewClient(transport ClientTransport, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stdout, "[mq-client] ", log.LstdFlags)
	}
	c := &Client{
		transport: transport,
		logger:    logger,
		pending:   make(map[string]chan *domain.ScoreResponse),
		done:      make(chan struct{}),
	}
	go c.consumeResponses()
	return c
}

// Score publishes a request and waits for its correlated response. timeout
// of zero means DefaultCallTimeout. On timeout the ticket is discarded and a
// late response for it is dropped.
func (c *Client) Score(ctx context.Context, req *domain.ScoreRequest, timeout time.Duration) (*domain.ScoreResponse, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}

	corrID := uuid.NewString()
	ch := make(chan *domain.ScoreResponse, 1)

	c.mu.Lock()
	c.pending[corrID] = ch
	c.mu.Unlock()
	observability.RecordCallIssued()
	start := time.Now()

	msg := Message{CorrelationID: corrID, ReplyTo: ResponseQueue, Body: body}
	if err := c.transport.Publish(ctx, RequestQueue, msg); err != nil {
		c.discard(corrID)
		observability.RecordCallAbandoned()
		return nil, fmt.Errorf("publish score request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		observability.RecordCallResolved(time.Since(start).Seconds())
		if resp.Error != "" {
			return nil, fmt.Errorf("score %s: %s", resp.TransactionID, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		c.discard(corrID)
		observability.RecordCallTimeout()
		return nil, fmt.Errorf("score %s after %s: %w", req.TransactionID, timeout, ErrTimeout)
	case <-ctx.Done():
		c.discard(corrID)
		observability.RecordCallAbandoned()
		return nil, ctx.Err()
	case <-c.done:
		c.discard(corrID)
		observability.RecordCallAbandoned()
		return nil, ErrClosed
	}
}

// discard removes a ticket; late responses for it are dropped.
func (c *Client) discard(corrID string) {
	c.mu.Lock()
	delete(c.pending, corrID)
	c.mu.Unlock()
}

// consumeResponses matches incoming responses against pending tickets.
// Responses with no ticket (late after a timeout, or foreign) are dropped.
func (c *Client) consumeResponses() {
	for msg := range c.transport.Responses() {
		var resp domain.ScoreResponse
		if err := json.Unmarshal(msg.Body, &resp); err != nil {
			c.logger.Printf("drop undecodable response (corr %s): %v", msg.CorrelationID, err)
			observability.RecordResponseDropped()
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.CorrelationID]
		if ok {
			delete(c.pending, msg.CorrelationID)
		}
		c.mu.Unlock()

		if !ok {
			observability.RecordResponseDropped()
			continue
		}
		ch <- &resp // buffered, never blocks
	}
}

// Close shuts the client down. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.transport.Close()
}

// Pending returns the number of outstanding calls.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsTimeout reports whether an error is a call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
