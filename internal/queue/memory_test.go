package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestQueue(clock Clock) *MemoryQueue {
	return NewMemoryQueue(MemoryQueueConfig{
		VisibilityTimeout: 30 * time.Second,
		MaxReceiveCount:   3,
		Clock:             clock,
	})
}

func TestMemoryQueueEnqueueReceiveAcknowledge(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	id, err := q.Enqueue(ctx, Message{
		Body:       []byte(`{"hello":"world"}`),
		Attributes: map[string]string{AttributeEmail: "jane@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, q.Depth())

	deliveries, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	delivery := deliveries[0]
	assert.Equal(t, id, delivery.MessageID)
	assert.NotEmpty(t, delivery.Receipt)
	assert.Equal(t, []byte(`{"hello":"world"}`), delivery.Body)
	assert.Equal(t, "jane@example.com", delivery.Attributes[AttributeEmail])
	assert.Equal(t, 1, delivery.ReceiveCount)

	require.NoError(t, q.Acknowledge(ctx, delivery.Receipt))
	assert.Equal(t, 0, q.Depth())

	deliveries, err = q.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}

func TestMemoryQueueLeasedMessageIsInvisible(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	q := newTestQueue(clock)

	_, err := q.Enqueue(ctx, Message{Body: []byte("a")})
	require.NoError(t, err)

	first, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, second, "leased message must not be redelivered")
}

func TestMemoryQueueLeaseExpiryRedelivers(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	q := newTestQueue(clock)

	_, err := q.Enqueue(ctx, Message{Body: []byte("a")})
	require.NoError(t, err)

	first, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].ReceiveCount)

	clock.Advance(31 * time.Second)

	second, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].ReceiveCount)
	assert.NotEqual(t, first[0].Receipt, second[0].Receipt)

	// The old receipt died with the lease.
	err = q.Acknowledge(ctx, first[0].Receipt)
	assert.EqualError(t, err, "queue: unknown or expired receipt")
}

func TestMemoryQueueFailRedeliversImmediately(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	_, err := q.Enqueue(ctx, Message{Body: []byte("a")})
	require.NoError(t, err)

	first, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, q.Fail(ctx, first[0].Receipt))

	second, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].ReceiveCount)
}

func TestMemoryQueueDeadLettersAfterMaxReceives(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	id, err := q.Enqueue(ctx, Message{
		Body:       []byte(`{"doomed":true}`),
		Attributes: map[string]string{AttributeEmail: "jane@example.com"},
	})
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		deliveries, err := q.Receive(ctx, 1)
		require.NoError(t, err)
		require.Len(t, deliveries, 1, "attempt %d", attempt)
		assert.Equal(t, attempt, deliveries[0].ReceiveCount)
		require.NoError(t, q.Fail(ctx, deliveries[0].Receipt))
	}

	// Third failure exhausted the budget; the message leaves the main path.
	deliveries, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
	assert.Equal(t, 0, q.Depth())

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].MessageID)
	assert.Equal(t, 3, dead[0].ReceiveCount)
	assert.Equal(t, []byte(`{"doomed":true}`), dead[0].Body)
	assert.Equal(t, "jane@example.com", dead[0].Attributes[AttributeEmail])
}

func TestMemoryQueuePreservesFIFOAcrossRedelivery(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	firstID, err := q.Enqueue(ctx, Message{Body: []byte("first")})
	require.NoError(t, err)
	secondID, err := q.Enqueue(ctx, Message{Body: []byte("second")})
	require.NoError(t, err)

	deliveries, err := q.Receive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, firstID, deliveries[0].MessageID)
	assert.Equal(t, secondID, deliveries[1].MessageID)
}

func TestMemoryQueueReceiveRespectsMax(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, Message{Body: []byte("x")})
		require.NoError(t, err)
	}

	deliveries, err := q.Receive(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
}

func TestMemoryQueueUnknownReceipt(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(&fakeClock{now: time.Unix(1_000_000, 0)})

	assert.EqualError(t, q.Acknowledge(ctx, "nope"), "queue: unknown or expired receipt")
	assert.EqualError(t, q.Fail(ctx, "nope"), "queue: unknown or expired receipt")
}
