// Package testkit builds synthetic Lambda events for tests.
package testkit

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HTTPEventOptions configures synthetic API Gateway events.
type HTTPEventOptions struct {
	Headers   map[string]string
	Origin    string
	SourceIP  string
	UserAgent string
	Body      []byte
	IsBase64  bool
}

// APIGatewayV2Request builds an HTTP API v2 request event.
func APIGatewayV2Request(method, path string, opts HTTPEventOptions) events.APIGatewayV2HTTPRequest {
	headers := map[string]string{}
	for key, value := range opts.Headers {
		headers[strings.ToLower(strings.TrimSpace(key))] = value
	}
	if opts.Origin != "" {
		headers["origin"] = opts.Origin
	}

	body := string(opts.Body)
	if opts.IsBase64 {
		body = base64.StdEncoding.EncodeToString(opts.Body)
	}

	return events.APIGatewayV2HTTPRequest{
		Version:  "2.0",
		RouteKey: "$default",
		RawPath:  path,
		Headers:  headers,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    strings.ToUpper(strings.TrimSpace(method)),
				Path:      path,
				SourceIP:  opts.SourceIP,
				UserAgent: opts.UserAgent,
			},
		},
		Body:            body,
		IsBase64Encoded: opts.IsBase64,
	}
}

// SQSMessageOptions configures one record of a synthetic SQS event.
type SQSMessageOptions struct {
	MessageID    string
	Body         string
	Attributes   map[string]string
	ReceiveCount int
}

// SQSEvent builds an SQS event from the given records.
func SQSEvent(records ...SQSMessageOptions) events.SQSEvent {
	out := events.SQSEvent{Records: make([]events.SQSMessage, 0, len(records))}
	for _, rec := range records {
		id := strings.TrimSpace(rec.MessageID)
		if id == "" {
			id = fmt.Sprintf("msg-%d", len(out.Records)+1)
		}
		receiveCount := rec.ReceiveCount
		if receiveCount < 1 {
			receiveCount = 1
		}

		attrs := map[string]events.SQSMessageAttribute{}
		for key, value := range rec.Attributes {
			value := value
			attrs[key] = events.SQSMessageAttribute{
				DataType:    "String",
				StringValue: &value,
			}
		}

		out.Records = append(out.Records, events.SQSMessage{
			MessageId:   id,
			Body:        rec.Body,
			EventSource: "aws:sqs",
			Attributes: map[string]string{
				"ApproximateReceiveCount": strconv.Itoa(receiveCount),
			},
			MessageAttributes: attrs,
		})
	}
	return out
}
