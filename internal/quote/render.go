package quote

import (
	"fmt"
	"html"
	"strings"
)

// Render produces the notification content for a validated quote request.
//
// Render is pure and deterministic: the same request always yields
// byte-identical output, so a redelivered message renders the same email.
// The total quantity is recomputed from the item list rather than read from
// the client-declared metadata.
func Render(req QuoteRequest) NotificationContent {
	totalQuantity := 0
	for _, item := range req.QuoteItems {
		totalQuantity += item.Quantity
	}

	return NotificationContent{
		Subject:  "New Quote Request from " + req.ContactInfo.Name,
		HTMLBody: renderHTML(req, totalQuantity),
		TextBody: renderText(req, totalQuantity),
	}
}

func renderHTML(req QuoteRequest, totalQuantity int) string {
	var b strings.Builder

	b.WriteString("<h2>New Quote Request</h2>\n")
	b.WriteString("<h3>Contact Information</h3>\n<ul>\n")
	fmt.Fprintf(&b, "<li><strong>Name:</strong> %s</li>\n", html.EscapeString(req.ContactInfo.Name))
	fmt.Fprintf(&b, "<li><strong>Email:</strong> <a href=\"mailto:%s\">%s</a></li>\n",
		html.EscapeString(req.ContactInfo.Email), html.EscapeString(req.ContactInfo.Email))
	fmt.Fprintf(&b, "<li><strong>Phone:</strong> <a href=\"tel:%s\">%s</a></li>\n",
		html.EscapeString(req.ContactInfo.Phone), html.EscapeString(req.ContactInfo.Phone))
	b.WriteString("</ul>\n")

	b.WriteString("<h3>Requested Items</h3>\n<ol>\n")
	for _, item := range req.QuoteItems {
		fmt.Fprintf(&b, "<li>%s &mdash; quantity %d</li>\n", html.EscapeString(item.ProductName), item.Quantity)
	}
	b.WriteString("</ol>\n")

	fmt.Fprintf(&b, "<p><strong>Total quantity:</strong> %d</p>\n", totalQuantity)
	fmt.Fprintf(&b, "<p><strong>Submitted at:</strong> %s</p>\n", html.EscapeString(req.Metadata.SubmittedAt))

	return b.String()
}

func renderText(req QuoteRequest, totalQuantity int) string {
	var b strings.Builder

	b.WriteString("New Quote Request\n\n")
	b.WriteString("Contact Information\n")
	fmt.Fprintf(&b, "  Name:  %s\n", req.ContactInfo.Name)
	fmt.Fprintf(&b, "  Email: %s\n", req.ContactInfo.Email)
	fmt.Fprintf(&b, "  Phone: %s\n", req.ContactInfo.Phone)

	b.WriteString("\nRequested Items\n")
	for i, item := range req.QuoteItems {
		fmt.Fprintf(&b, "  %d. %s - quantity %d\n", i+1, item.ProductName, item.Quantity)
	}

	fmt.Fprintf(&b, "\nTotal quantity: %d\n", totalQuantity)
	fmt.Fprintf(&b, "Submitted at: %s\n", req.Metadata.SubmittedAt)

	return b.String()
}
