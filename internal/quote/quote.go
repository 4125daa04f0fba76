// Package quote defines the quote-request payload accepted by the intake
// endpoint, its validation rules, and the notification content rendered for
// the sales team.
package quote

// ContactInfo identifies the person requesting a quote.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// QuoteItem is a single requested product/quantity pair.
type QuoteItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Metadata carries client-declared summary figures. It is informational only
// and is never cross-checked against the item list.
type Metadata struct {
	TotalItems          int    `json:"totalItems"`
	TotalUniqueProducts int    `json:"totalUniqueProducts"`
	SubmittedAt         string `json:"submittedAt"`
}

// QuoteRequest is the payload submitted by the website's quote form.
//
// A QuoteRequest that reaches the queue has already passed Validate; the
// queue never stores invalid data.
type QuoteRequest struct {
	ContactInfo     ContactInfo `json:"contactInfo"`
	QuoteItems      []QuoteItem `json:"quoteItems"`
	Metadata        Metadata    `json:"metadata"`
	AgreedToContact bool        `json:"agreedToContact"`
}

// NotificationContent is the rendered notification for one quote request.
// It is a pure value derived deterministically from a QuoteRequest.
type NotificationContent struct {
	Subject  string
	HTMLBody string
	TextBody string
}
