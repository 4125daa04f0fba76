package queue

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(
		ctx context.Context,
		params *sqs.SendMessageInput,
		optFns ...func(*sqs.Options),
	) (*sqs.SendMessageOutput, error)
	ReceiveMessage(
		ctx context.Context,
		params *sqs.ReceiveMessageInput,
		optFns ...func(*sqs.Options),
	) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(
		ctx context.Context,
		params *sqs.DeleteMessageInput,
		optFns ...func(*sqs.Options),
	) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(
		ctx context.Context,
		params *sqs.ChangeMessageVisibilityInput,
		optFns ...func(*sqs.Options),
	) (*sqs.ChangeMessageVisibilityOutput, error)
}

// SQSQueue is the production Queue backed by an SQS queue.
//
// Lease duration (visibility timeout) and the redrive policy that moves a
// message to the dead-letter queue after DefaultMaxReceiveCount delivery
// attempts are owned by the queue resource itself; see the CDK stack.
type SQSQueue struct {
	api      sqsAPI
	queueURL string
}

var _ Queue = (*SQSQueue)(nil)

type sqsOptions struct {
	api    sqsAPI
	awsCfg *aws.Config
}

// SQSOption customizes SQSQueue construction.
type SQSOption func(*sqsOptions)

// WithSQSAPI injects an SQS API implementation (used by tests).
func WithSQSAPI(api sqsAPI) SQSOption {
	return func(opts *sqsOptions) {
		opts.api = api
	}
}

// WithAWSConfig supplies a pre-loaded AWS config.
func WithAWSConfig(cfg aws.Config) SQSOption {
	return func(opts *sqsOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

// NewSQSQueue creates an SQS-backed Queue for the given queue URL.
func NewSQSQueue(ctx context.Context, queueURL string, options ...SQSOption) (*SQSQueue, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("queue: queue url is empty")
	}

	opts := &sqsOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.api != nil {
		return &SQSQueue{api: opts.api, queueURL: queueURL}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	return &SQSQueue{api: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (q *SQSQueue) Enqueue(ctx context.Context, msg Message) (string, error) {
	if q == nil || q.api == nil {
		return "", errors.New("queue: queue is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(msg.Body)),
	}
	if len(msg.Attributes) > 0 {
		input.MessageAttributes = map[string]types.MessageAttributeValue{}
		for key, value := range msg.Attributes {
			input.MessageAttributes[key] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(value),
			}
		}
	}

	out, err := q.api.SendMessage(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int) ([]Delivery, error) {
	if q == nil || q.api == nil {
		return nil, errors.New("queue: queue is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if max <= 0 {
		max = 1
	}
	if max > 10 {
		max = 10 // SQS limit
	}

	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameSentTimestamp,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, msg := range out.Messages {
		deliveries = append(deliveries, deliveryFromSQSMessage(msg))
	}
	return deliveries, nil
}

func (q *SQSQueue) Acknowledge(ctx context.Context, receipt string) error {
	if q == nil || q.api == nil {
		return errors.New("queue: queue is nil")
	}
	if strings.TrimSpace(receipt) == "" {
		return errors.New("queue: receipt is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	return err
}

func (q *SQSQueue) Fail(ctx context.Context, receipt string) error {
	if q == nil || q.api == nil {
		return errors.New("queue: queue is nil")
	}
	if strings.TrimSpace(receipt) == "" {
		return errors.New("queue: receipt is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := q.api.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.queueURL),
		ReceiptHandle:     aws.String(receipt),
		VisibilityTimeout: 0,
	})
	return err
}

func deliveryFromSQSMessage(msg types.Message) Delivery {
	attributes := map[string]string{}
	for key, attr := range msg.MessageAttributes {
		attributes[key] = aws.ToString(attr.StringValue)
	}

	receiveCount := 0
	if raw := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			receiveCount = n
		}
	}

	enqueuedAt := time.Time{}
	if raw := msg.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]; raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			enqueuedAt = time.UnixMilli(ms).UTC()
		}
	}

	return Delivery{
		MessageID:    aws.ToString(msg.MessageId),
		Receipt:      aws.ToString(msg.ReceiptHandle),
		Body:         []byte(aws.ToString(msg.Body)),
		Attributes:   attributes,
		ReceiveCount: receiveCount,
		EnqueuedAt:   enqueuedAt,
	}
}
