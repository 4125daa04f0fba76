package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Clock provides deterministic time for lease bookkeeping.
type Clock interface {
	Now() time.Time
}

// RealClock uses time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

const (
	// DefaultVisibilityTimeout is 6x the dispatcher's hard processing
	// timeout, so a single slow attempt never races its own redelivery.
	DefaultVisibilityTimeout = 180 * time.Second

	// DefaultMaxReceiveCount is the delivery-attempt budget before a message
	// is dead-lettered.
	DefaultMaxReceiveCount = 3
)

// MemoryQueueConfig configures a MemoryQueue.
type MemoryQueueConfig struct {
	VisibilityTimeout time.Duration
	MaxReceiveCount   int
	Clock             Clock
}

// MemoryQueue is an in-memory Queue for testing and local development.
//
// WARNING: this is NOT suitable for production Lambda environments as
// messages are lost when the process exits. It exists to model the
// production queue's lease, redelivery, and dead-letter behavior exactly.
type MemoryQueue struct {
	mu sync.Mutex

	visibilityTimeout time.Duration
	maxReceiveCount   int
	clock             Clock

	order    []string
	messages map[string]*memoryMessage
	dead     []Delivery
}

var _ Queue = (*MemoryQueue)(nil)

type memoryMessage struct {
	id           string
	body         []byte
	attributes   map[string]string
	enqueuedAt   time.Time
	receiveCount int

	receipt    string
	leaseUntil time.Time
}

// NewMemoryQueue creates a MemoryQueue with normalized configuration.
func NewMemoryQueue(config MemoryQueueConfig) *MemoryQueue {
	cfg := config
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if cfg.MaxReceiveCount <= 0 {
		cfg.MaxReceiveCount = DefaultMaxReceiveCount
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	return &MemoryQueue{
		visibilityTimeout: cfg.VisibilityTimeout,
		maxReceiveCount:   cfg.MaxReceiveCount,
		clock:             cfg.Clock,
		messages:          map[string]*memoryMessage{},
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg Message) (string, error) {
	if q == nil {
		return "", errors.New("queue: nil queue")
	}

	stored := &memoryMessage{
		id:         ulid.Make().String(),
		body:       append([]byte(nil), msg.Body...),
		attributes: cloneAttributes(msg.Attributes),
		enqueuedAt: q.clock.Now(),
	}

	q.mu.Lock()
	q.messages[stored.id] = stored
	q.order = append(q.order, stored.id)
	q.mu.Unlock()

	return stored.id, nil
}

func (q *MemoryQueue) Receive(_ context.Context, max int) ([]Delivery, error) {
	if q == nil {
		return nil, errors.New("queue: nil queue")
	}
	if max <= 0 {
		max = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	deliveries := make([]Delivery, 0, max)
	remaining := make([]string, 0, len(q.order))

	for _, id := range q.order {
		msg, ok := q.messages[id]
		if !ok {
			continue
		}

		if msg.receipt != "" && now.Before(msg.leaseUntil) {
			remaining = append(remaining, id)
			continue
		}

		// Lease expired or never leased. Messages over the delivery budget
		// leave the main path permanently.
		if msg.receiveCount >= q.maxReceiveCount {
			q.deadLetterLocked(msg)
			continue
		}

		if len(deliveries) >= max {
			remaining = append(remaining, id)
			continue
		}

		msg.receiveCount++
		msg.receipt = ulid.Make().String()
		msg.leaseUntil = now.Add(q.visibilityTimeout)
		deliveries = append(deliveries, deliveryFor(msg))
		remaining = append(remaining, id)
	}

	q.order = remaining
	return deliveries, nil
}

func (q *MemoryQueue) Acknowledge(_ context.Context, receipt string) error {
	if q == nil {
		return errors.New("queue: nil queue")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	msg := q.findByReceiptLocked(receipt)
	if msg == nil {
		return errors.New("queue: unknown or expired receipt")
	}
	delete(q.messages, msg.id)
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, receipt string) error {
	if q == nil {
		return errors.New("queue: nil queue")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	msg := q.findByReceiptLocked(receipt)
	if msg == nil {
		return errors.New("queue: unknown or expired receipt")
	}

	msg.receipt = ""
	msg.leaseUntil = time.Time{}

	if msg.receiveCount >= q.maxReceiveCount {
		q.deadLetterLocked(msg)
	}
	return nil
}

// DeadLetters returns a copy of the dead-letter holding area for manual
// inspection.
func (q *MemoryQueue) DeadLetters() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Delivery(nil), q.dead...)
}

// Depth returns the number of messages on the main path.
func (q *MemoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *MemoryQueue) findByReceiptLocked(receipt string) *memoryMessage {
	if receipt == "" {
		return nil
	}
	for _, msg := range q.messages {
		if msg.receipt == receipt {
			return msg
		}
	}
	return nil
}

func (q *MemoryQueue) deadLetterLocked(msg *memoryMessage) {
	delete(q.messages, msg.id)
	q.dead = append(q.dead, Delivery{
		MessageID:    msg.id,
		Body:         append([]byte(nil), msg.body...),
		Attributes:   cloneAttributes(msg.attributes),
		ReceiveCount: msg.receiveCount,
		EnqueuedAt:   msg.enqueuedAt,
	})
}

func deliveryFor(msg *memoryMessage) Delivery {
	return Delivery{
		MessageID:    msg.id,
		Receipt:      msg.receipt,
		Body:         append([]byte(nil), msg.body...),
		Attributes:   cloneAttributes(msg.attributes),
		ReceiveCount: msg.receiveCount,
		EnqueuedAt:   msg.enqueuedAt,
	}
}

func cloneAttributes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
