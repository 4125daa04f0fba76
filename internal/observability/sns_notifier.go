package observability

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type snsAPI interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

// Field names the notifier lifts out of an error entry. The dispatcher sets
// them on every failed-delivery log so the published alert can say which
// message failed and whether the queue is about to dead-letter it.
const (
	FieldMessageID    = "message_id"
	FieldReceiveCount = "receive_count"
	FieldDLQBound     = "dlq_bound"
)

// QuoteAlert is the document published to the alert topic when the pipeline
// logs an error. MessageID, ReceiveCount, and DLQBound identify the queued
// quote request the failure belongs to; DLQBound means this was the last
// delivery attempt and the request is moving to the dead-letter queue.
type QuoteAlert struct {
	Alert        string         `json:"alert"`
	MessageID    string         `json:"messageId,omitempty"`
	ReceiveCount int            `json:"receiveCount,omitempty"`
	DLQBound     bool           `json:"dlqBound"`
	Detail       string         `json:"detail,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Function     string         `json:"function,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
	LoggedAt     time.Time      `json:"loggedAt"`
}

// SNSNotifierOptions configures the published alert.
type SNSNotifierOptions struct {
	// Subject prefixes every alert's subject line.
	Subject string
}

type snsNotifier struct {
	client   snsAPI
	topicARN string
	subject  string
}

var _ ErrorNotifier = (*snsNotifier)(nil)

// NewSNSNotifier publishes error-level log entries to an SNS topic as
// QuoteAlert documents so dead-letter-bound failures reach a human.
func NewSNSNotifier(client snsAPI, topicARN string, opts SNSNotifierOptions) ErrorNotifier {
	return &snsNotifier{
		client:   client,
		topicARN: strings.TrimSpace(topicARN),
		subject:  strings.TrimSpace(opts.Subject),
	}
}

func (n *snsNotifier) Notify(ctx context.Context, entry LogEntry) error {
	if n == nil || n.client == nil {
		return errors.New("observability: sns notifier is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if n.topicARN == "" {
		return errors.New("observability: sns topic arn is empty")
	}

	alert := alertFromEntry(entry)

	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(n.subjectFor(alert)),
		Message:  aws.String(truncate(string(body), 256*1024)),
	})
	return err
}

// alertFromEntry lifts the delivery identifiers out of the entry's fields;
// whatever remains rides along under Fields.
func alertFromEntry(entry LogEntry) QuoteAlert {
	alert := QuoteAlert{
		Alert:     entry.Message,
		RequestID: entry.RequestID,
		Function:  os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		LoggedAt:  entry.Timestamp,
	}

	rest := make(map[string]any, len(entry.Fields))
	for key, value := range entry.Fields {
		switch key {
		case FieldMessageID:
			alert.MessageID, _ = value.(string)
		case FieldReceiveCount:
			alert.ReceiveCount = intValue(value)
		case FieldDLQBound:
			alert.DLQBound, _ = value.(bool)
		case "error":
			alert.Detail, _ = value.(string)
		default:
			rest[key] = value
		}
	}
	if len(rest) > 0 {
		alert.Fields = rest
	}
	return alert
}

func (n *snsNotifier) subjectFor(alert QuoteAlert) string {
	subject := n.subject
	if subject == "" {
		subject = "quotetheory alert"
	}
	if alert.DLQBound {
		subject += " [dead-lettering]"
	}
	if alert.MessageID != "" {
		subject += ": " + alert.MessageID
	}
	return truncate(SanitizeLogString(subject), 100)
}

func intValue(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func truncate(value string, max int) string {
	if len(value) > max {
		return value[:max]
	}
	return value
}
