package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fraudscore/internal/mq"
)

func TestCloseUnblocksFullQueuePublisher(t *testing.T) {
	b := NewBroker()
	ctx := context.Background()

	// No consumer is attached, so the queue fills to capacity.
	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, b.publish(ctx, mq.RequestQueue, mq.Message{}))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.publish(ctx, mq.RequestQueue, mq.Message{CorrelationID: "blocked"})
	}()

	// Let the publisher block on the full queue before closing.
	time.Sleep(20 * time.Millisecond)
	b.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, mq.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("publisher still blocked after Close")
	}
}

func TestPublishAfterCloseReturnsErrClosed(t *testing.T) {
	b := NewBroker()
	b.Close()

	err := b.publish(context.Background(), mq.RequestQueue, mq.Message{})
	require.ErrorIs(t, err, mq.ErrClosed)
}

func TestCloseDrainsEnqueuedDeliveries(t *testing.T) {
	b := NewBroker()
	wt := NewWorkerTransport(b)

	require.NoError(t, b.publish(context.Background(), mq.RequestQueue, mq.Message{CorrelationID: "pending"}))
	b.Close()

	// The message enqueued before Close is still delivered, then the
	// delivery channel closes so consumers can exit.
	d, ok := <-wt.Deliveries()
	require.True(t, ok)
	require.Equal(t, "pending", d.CorrelationID)

	_, ok = <-wt.Deliveries()
	require.False(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	b.Close()
	b.Close()
}
