// Package intake implements the synchronous quote-request endpoint: parse,
// validate, enqueue, respond.
package intake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/theory-cloud/quotetheory/internal/observability"
	"github.com/theory-cloud/quotetheory/internal/queue"
	"github.com/theory-cloud/quotetheory/internal/quote"
)

// Response is the JSON body returned by the intake endpoint.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}

const (
	messageSubmitted      = "Quote request submitted successfully"
	errorInvalidJSON      = "Invalid JSON in request body"
	errorValidationFailed = "Validation failed"
	errorInternal         = "Internal server error. Please try again later."
	errorNotFound         = "Not found"
)

// DefaultTimeout is the intake handler's hard processing budget. Exceeding
// it surfaces as a transport-level failure to the caller.
const DefaultTimeout = 10 * time.Second

// HandlerConfig configures the intake Handler.
type HandlerConfig struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// Handler serves POST /quote. It enqueues exactly one message per valid
// request and never enqueues on a parse or validation failure.
type Handler struct {
	queue          queue.Queue
	log            observability.StructuredLogger
	allowedOrigins []string
	timeout        time.Duration
}

// NewHandler creates an intake Handler.
func NewHandler(q queue.Queue, log observability.StructuredLogger, config HandlerConfig) *Handler {
	if log == nil {
		log = observability.NewNoOpLogger()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{
		queue:          q,
		log:            log,
		allowedOrigins: normalizeOrigins(config.AllowedOrigins),
		timeout:        timeout,
	}
}

// HandleAPIGatewayV2 routes an API Gateway v2 HTTP event.
func (h *Handler) HandleAPIGatewayV2(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	if ctx == nil {
		ctx = context.Background()
	}

	origin := headerValue(event.Headers, "origin")
	method := strings.ToUpper(strings.TrimSpace(event.RequestContext.HTTP.Method))
	path := event.RequestContext.HTTP.Path
	if path == "" {
		path = event.RawPath
	}

	h.logCaller(event)

	if method == "OPTIONS" {
		return h.preflightResponse(origin)
	}

	switch {
	case method == "GET" && path == "/health":
		return h.respondJSON(200, map[string]string{"status": "ok"}, origin)
	case method == "POST" && path == "/quote":
		status, body := h.handleWithTimeout(ctx, requestBody(event))
		return h.respond(status, body, origin)
	default:
		return h.respond(404, Response{Success: false, Error: errorNotFound}, origin)
	}
}

// handleWithTimeout bounds one submission by the hard timeout; a slow queue
// must not hold the caller's connection open indefinitely.
func (h *Handler) handleWithTimeout(ctx context.Context, rawBody string) (int, Response) {
	type result struct {
		status int
		body   Response
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.Error("intake handler panicked", map[string]any{"panic": r})
				ch <- result{status: 500, body: Response{Success: false, Error: errorInternal}}
			}
		}()
		status, body := h.handle(ctx, rawBody)
		ch <- result{status: status, body: body}
	}()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.status, res.body
	case <-timer.C:
		h.log.Error("intake handler timed out", map[string]any{"timeout": h.timeout.String()})
		return 500, Response{Success: false, Error: errorInternal}
	}
}

// handle runs one submission: parse, validate, enqueue.
func (h *Handler) handle(ctx context.Context, rawBody string) (int, Response) {
	var payload any
	if err := json.Unmarshal([]byte(rawBody), &payload); err != nil {
		return 400, Response{Success: false, Error: errorInvalidJSON}
	}

	if errs := quote.Validate(payload); len(errs) > 0 {
		return 400, Response{Success: false, Error: errorValidationFailed, Details: errs}
	}

	req := quote.FromPayload(payload)

	body, err := json.Marshal(req)
	if err != nil {
		h.log.Error("failed to serialize quote request", map[string]any{"error": err.Error()})
		return 500, Response{Success: false, Error: errorInternal}
	}

	messageID, err := h.queue.Enqueue(ctx, queue.Message{
		Body: body,
		Attributes: map[string]string{
			queue.AttributeEmail: req.ContactInfo.Email,
		},
	})
	if err != nil {
		h.log.Error("failed to enqueue quote request", map[string]any{"error": err.Error()})
		return 500, Response{Success: false, Error: errorInternal}
	}

	h.log.Info("quote request enqueued", map[string]any{
		"message_id": messageID,
		"item_count": len(req.QuoteItems),
	})
	return 200, Response{Success: true, Message: messageSubmitted}
}

// logCaller records the caller's source IP and user agent, best-effort.
func (h *Handler) logCaller(event events.APIGatewayV2HTTPRequest) {
	sourceIP := strings.TrimSpace(event.RequestContext.HTTP.SourceIP)
	if sourceIP == "" {
		sourceIP = "unknown"
	}
	userAgent := strings.TrimSpace(event.RequestContext.HTTP.UserAgent)
	if userAgent == "" {
		userAgent = headerValue(event.Headers, "user-agent")
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	h.log.Info("quote request received", map[string]any{
		"source_ip":  sourceIP,
		"user_agent": userAgent,
	})
}

func (h *Handler) respond(status int, body Response, origin string) events.APIGatewayV2HTTPResponse {
	return h.respondJSON(status, body, origin)
}

func (h *Handler) respondJSON(status int, body any, origin string) events.APIGatewayV2HTTPResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		status = 500
		encoded = []byte(`{"success":false,"error":"` + errorInternal + `"}`)
	}

	headers := map[string]string{
		"content-type": "application/json; charset=utf-8",
	}
	h.applyCORS(headers, origin)

	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(encoded),
	}
}

func (h *Handler) preflightResponse(origin string) events.APIGatewayV2HTTPResponse {
	headers := map[string]string{}
	if originAllowed(origin, h.allowedOrigins) {
		headers["access-control-allow-origin"] = origin
		headers["access-control-allow-methods"] = "POST"
		headers["access-control-allow-headers"] = "Content-Type"
		headers["vary"] = "origin"
	}
	return events.APIGatewayV2HTTPResponse{StatusCode: 204, Headers: headers}
}

func (h *Handler) applyCORS(headers map[string]string, origin string) {
	if !originAllowed(origin, h.allowedOrigins) {
		return
	}
	headers["access-control-allow-origin"] = origin
	headers["vary"] = "origin"
}

func requestBody(event events.APIGatewayV2HTTPRequest) string {
	if !event.IsBase64Encoded {
		return event.Body
	}
	decoded, err := base64.StdEncoding.DecodeString(event.Body)
	if err != nil {
		// Leave it to the JSON parse to produce the client-facing error.
		return event.Body
	}
	return string(decoded)
}

func headerValue(headers map[string]string, key string) string {
	for name, value := range headers {
		if strings.EqualFold(name, key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			return []string{"*"}
		}
		out = append(out, trimmed)
	}
	return out
}

func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" || len(allowed) == 0 {
		return false
	}
	for _, candidate := range allowed {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return false
}
