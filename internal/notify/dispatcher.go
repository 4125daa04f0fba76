// Package notify consumes queued quote requests and dispatches notification
// emails to the sales team.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/theory-cloud/quotetheory/internal/mail"
	"github.com/theory-cloud/quotetheory/internal/observability"
	"github.com/theory-cloud/quotetheory/internal/queue"
	"github.com/theory-cloud/quotetheory/internal/quote"
)

// DefaultTimeout is the hard per-delivery processing budget. Exceeding it
// counts as a failed delivery attempt and feeds the redelivery/DLQ policy.
const DefaultTimeout = 30 * time.Second

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// SenderEmail is the verified address notifications are sent from.
	SenderEmail string
	// SalesRepEmail is the single recipient of every notification.
	SalesRepEmail string
	Timeout       time.Duration
	// MaxReceiveCount mirrors the queue's redrive policy so failure logs can
	// flag the delivery attempt that sends a message to the DLQ.
	MaxReceiveCount int
}

// Dispatcher processes exactly one queued quote request per delivery. It
// never batches multiple requests into one email. A failure anywhere in
// deserialize, render, or send marks the whole delivery failed; duplicate
// emails on retry after an unacknowledged send are an accepted risk of
// at-least-once delivery, not masked.
type Dispatcher struct {
	sender mail.Sender
	log    observability.StructuredLogger

	senderEmail     string
	salesRepEmail   string
	timeout         time.Duration
	maxReceiveCount int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender mail.Sender, log observability.StructuredLogger, config DispatcherConfig) *Dispatcher {
	if log == nil {
		log = observability.NewNoOpLogger()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxReceiveCount := config.MaxReceiveCount
	if maxReceiveCount <= 0 {
		maxReceiveCount = queue.DefaultMaxReceiveCount
	}
	return &Dispatcher{
		sender:          sender,
		log:             log,
		senderEmail:     config.SenderEmail,
		salesRepEmail:   config.SalesRepEmail,
		timeout:         timeout,
		maxReceiveCount: maxReceiveCount,
	}
}

// HandleSQS processes an SQS event and reports each failed record as a
// partial batch failure, which SQS interprets as "redeliver".
func (d *Dispatcher) HandleSQS(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	if ctx == nil {
		ctx = context.Background()
	}

	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		delivery := deliveryFromSQSRecord(record)
		if err := d.processWithTimeout(ctx, delivery); err != nil {
			d.logDeliveryFailure(delivery, err)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

// PollOnce receives up to max deliveries from q and processes them,
// acknowledging successes and failing the rest so the queue redelivers.
// It returns the number of successfully processed deliveries.
func (d *Dispatcher) PollOnce(ctx context.Context, q queue.Queue, max int) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if q == nil {
		return 0, fmt.Errorf("notify: queue is nil")
	}

	deliveries, err := q.Receive(ctx, max)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, delivery := range deliveries {
		if err := d.processWithTimeout(ctx, delivery); err != nil {
			d.logDeliveryFailure(delivery, err)
			if failErr := q.Fail(ctx, delivery.Receipt); failErr != nil {
				d.log.Error("failed to release delivery", map[string]any{
					"message_id": delivery.MessageID,
					"error":      failErr.Error(),
				})
			}
			continue
		}
		if ackErr := q.Acknowledge(ctx, delivery.Receipt); ackErr != nil {
			d.log.Error("failed to acknowledge delivery", map[string]any{
				"message_id": delivery.MessageID,
				"error":      ackErr.Error(),
			})
			continue
		}
		processed++
	}
	return processed, nil
}

// logDeliveryFailure records a failed attempt with the identifiers the alert
// notifier lifts out of error entries, including whether this attempt exhausts
// the queue's redrive budget.
func (d *Dispatcher) logDeliveryFailure(delivery queue.Delivery, err error) {
	d.log.Error("quote notification failed", map[string]any{
		observability.FieldMessageID:    delivery.MessageID,
		observability.FieldReceiveCount: delivery.ReceiveCount,
		observability.FieldDLQBound:     delivery.ReceiveCount >= d.maxReceiveCount,
		"error":                         err.Error(),
	})
}

// processWithTimeout bounds one delivery by the hard processing budget so a
// hung transport call cannot outlive the message's visibility lease.
func (d *Dispatcher) processWithTimeout(ctx context.Context, delivery queue.Delivery) error {
	ch := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fmt.Errorf("notify: processing panicked: %v", r)
			}
		}()
		ch <- d.ProcessDelivery(ctx, delivery)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return fmt.Errorf("notify: processing exceeded %s", d.timeout)
	}
}

// ProcessDelivery handles a single delivery: deserialize, render, send.
func (d *Dispatcher) ProcessDelivery(ctx context.Context, delivery queue.Delivery) error {
	if d == nil || d.sender == nil {
		return fmt.Errorf("notify: dispatcher is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var req quote.QuoteRequest
	if err := json.Unmarshal(delivery.Body, &req); err != nil {
		return fmt.Errorf("notify: deserialize quote request: %w", err)
	}

	content := quote.Render(req)

	err := d.sender.Send(ctx, mail.Message{
		From:     d.senderEmail,
		To:       d.salesRepEmail,
		ReplyTo:  req.ContactInfo.Email,
		Subject:  content.Subject,
		HTMLBody: content.HTMLBody,
		TextBody: content.TextBody,
	})
	if err != nil {
		return fmt.Errorf("notify: send notification: %w", err)
	}

	d.log.Info("quote notification sent", map[string]any{
		"message_id": delivery.MessageID,
		"reply_to":   req.ContactInfo.Email,
	})
	return nil
}

func deliveryFromSQSRecord(record events.SQSMessage) queue.Delivery {
	attributes := map[string]string{}
	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			attributes[key] = *attr.StringValue
		}
	}

	receiveCount := 0
	if raw := record.Attributes["ApproximateReceiveCount"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			receiveCount = n
		}
	}

	return queue.Delivery{
		MessageID:    record.MessageId,
		Receipt:      record.ReceiptHandle,
		Body:         []byte(record.Body),
		Attributes:   attributes,
		ReceiveCount: receiveCount,
	}
}
