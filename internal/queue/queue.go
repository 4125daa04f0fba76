// Package queue provides the durable, at-least-once message queue that
// decouples quote intake from notification dispatch.
//
// The production implementation is backed by SQS; MemoryQueue implements the
// same lease, redelivery, and dead-letter semantics in memory for tests and
// local development. All coordination (one active lease per message) is owned
// by the queue; consumers must never assume they are the sole or first
// handler of a message.
package queue

import (
	"context"
	"time"
)

// AttributeEmail tags every message with the submitter's contact email for
// downstream filtering and observability.
const AttributeEmail = "email"

// Message is an outgoing payload plus its string attributes.
type Message struct {
	Body       []byte
	Attributes map[string]string
}

// Delivery is one leased delivery attempt of a queued message.
//
// ReceiveCount is the number of times the message has been delivered,
// including this attempt. Receipt identifies this lease and is only valid
// until the lease expires.
type Delivery struct {
	MessageID    string
	Receipt      string
	Body         []byte
	Attributes   map[string]string
	ReceiveCount int
	EnqueuedAt   time.Time
}

// Queue is an at-least-once message queue with leased deliveries.
//
// A delivery that is neither acknowledged nor failed becomes redeliverable
// once its lease expires. Fail makes it redeliverable immediately. Ordering
// across independent messages is not guaranteed.
type Queue interface {
	// Enqueue durably stores a message and returns its ID.
	Enqueue(ctx context.Context, msg Message) (string, error)

	// Receive leases up to max messages for exclusive processing.
	Receive(ctx context.Context, max int) ([]Delivery, error)

	// Acknowledge permanently removes the delivered message.
	Acknowledge(ctx context.Context, receipt string) error

	// Fail releases the lease so the message is immediately eligible for
	// redelivery.
	Fail(ctx context.Context, receipt string) error
}
