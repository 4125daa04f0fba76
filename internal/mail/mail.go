// Package mail is the outbound email transport for quote notifications.
//
// The sender and recipient addresses must be pre-verified with the transport
// provider; that is an external precondition, not enforced here.
package mail

import "context"

// Message is a single outbound email.
type Message struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers one message. Implementations must treat a returned error
// as "nothing can be assumed about delivery": callers retry the whole unit.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
