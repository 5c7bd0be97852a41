// Package mq implements the correlated request/response protocol the
// scoring pipeline runs over a message broker: a client that multiplexes
// concurrent calls onto one shared channel and matches replies by
// correlation id, and a worker that consumes requests under a prefetch
// bound and publishes correlated responses.
package mq

import (
	"context"
	"errors"
)

// Default queue names.
const (
	RequestQueue  = "score.request"
	ResponseQueue = "score.response"
)

// Protocol errors.
var (
	// ErrTimeout is returned when no matching response arrives within the
	// call deadline. The ticket is discarded; a late response is dropped.
	ErrTimeout = errors.New("scoring call timed out")

	// ErrMalformedMessage marks a message whose payload cannot be decoded or
	// lacks a required field.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrClosed is returned when the transport has been closed.
	ErrClosed = errors.New("transport closed")
)

// Message is one broker message with its correlation metadata.
type Message struct {
	CorrelationID string
	ReplyTo       string
	Body          []byte
}

// Delivery is one consumed request. Exactly one of Ack or Nack must be
// called; an unacknowledged message is redelivered or dead-lettered by the
// transport.
type Delivery struct {
	Message
	Ack  func() error
	Nack func(requeue bool) error
}

// ClientTransport is the producer-side broker connection. Publish is safe
// for concurrent use; messages are never interleaved mid-frame. Responses
// yields every message arriving on the reply queue and closes when the
// transport closes.
type ClientTransport interface {
	Publish(ctx context.Context, queue string, msg Message) error
	Responses() <-chan Message
	Close() error
}

// WorkerTransport is the consumer-side broker connection. Deliveries yields
// requests, at most the configured prefetch count unacknowledged at a time,
// and closes when the transport closes.
type WorkerTransport interface {
	Deliveries() <-chan Delivery
	Publish(ctx context.Context, queue string, msg Message) error
	Close() error
}
