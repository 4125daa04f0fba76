package quote

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks a decoded JSON payload against the quote-request contract
// and returns every failure it finds. An empty slice means the payload is
// valid. The input is untrusted and may not match the expected shape at all;
// Validate never panics and never short-circuits on the first error.
func Validate(payload any) []string {
	errs := []string{}

	body, ok := payload.(map[string]any)
	if !ok {
		return append(errs,
			"request body must be a JSON object",
			"contactInfo is required",
			"quoteItems must be a non-empty array",
			"agreedToContact must be true",
		)
	}

	errs = append(errs, validateContact(body["contactInfo"])...)
	errs = append(errs, validateItems(body["quoteItems"])...)

	if agreed, ok := body["agreedToContact"].(bool); !ok || !agreed {
		errs = append(errs, "agreedToContact must be true")
	}

	return errs
}

func validateContact(raw any) []string {
	contact, ok := raw.(map[string]any)
	if !ok {
		return []string{"contactInfo is required"}
	}

	errs := []string{}
	if stringField(contact, "name") == "" {
		errs = append(errs, "contactInfo.name is required")
	}

	email := stringField(contact, "email")
	switch {
	case email == "":
		errs = append(errs, "contactInfo.email is required")
	case !emailPattern.MatchString(email):
		errs = append(errs, "contactInfo.email must be a valid email address")
	}

	if stringField(contact, "phone") == "" {
		errs = append(errs, "contactInfo.phone is required")
	}
	return errs
}

func validateItems(raw any) []string {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return []string{"quoteItems must be a non-empty array"}
	}

	errs := []string{}
	for i, rawItem := range items {
		item, ok := rawItem.(map[string]any)
		if !ok {
			errs = append(errs,
				fmt.Sprintf("quoteItems[%d].productName is required", i),
				fmt.Sprintf("quoteItems[%d].quantity must be a positive number", i),
			)
			continue
		}
		if stringField(item, "productName") == "" {
			errs = append(errs, fmt.Sprintf("quoteItems[%d].productName is required", i))
		}
		if !isPositiveQuantity(item["quantity"]) {
			errs = append(errs, fmt.Sprintf("quoteItems[%d].quantity must be a positive number", i))
		}
	}
	return errs
}

// FromPayload builds a QuoteRequest from a decoded JSON payload that has
// already passed Validate. It reads the same loosely-typed shape Validate
// checked, so number literals like 3.0 that Validate accepts are never
// rejected on a second, stricter decode. Unexpected shapes yield zero values.
func FromPayload(payload any) QuoteRequest {
	body, _ := payload.(map[string]any)

	req := QuoteRequest{}
	if contact, ok := body["contactInfo"].(map[string]any); ok {
		req.ContactInfo = ContactInfo{
			Name:  stringField(contact, "name"),
			Email: stringField(contact, "email"),
			Phone: stringField(contact, "phone"),
		}
	}

	if items, ok := body["quoteItems"].([]any); ok {
		req.QuoteItems = make([]QuoteItem, 0, len(items))
		for _, rawItem := range items {
			item, ok := rawItem.(map[string]any)
			if !ok {
				continue
			}
			req.QuoteItems = append(req.QuoteItems, QuoteItem{
				ProductName: stringField(item, "productName"),
				Quantity:    intField(item, "quantity"),
			})
		}
	}

	if meta, ok := body["metadata"].(map[string]any); ok {
		req.Metadata = Metadata{
			TotalItems:          intField(meta, "totalItems"),
			TotalUniqueProducts: intField(meta, "totalUniqueProducts"),
			SubmittedAt:         stringField(meta, "submittedAt"),
		}
	}

	if agreed, ok := body["agreedToContact"].(bool); ok {
		req.AgreedToContact = agreed
	}
	return req
}

func stringField(obj map[string]any, key string) string {
	value, _ := obj[key].(string)
	return strings.TrimSpace(value)
}

// intField truncates, which only matters for the informational metadata
// fields; validated quantities are always integral.
func intField(obj map[string]any, key string) int {
	n, _ := obj[key].(float64)
	return int(n)
}

// isPositiveQuantity accepts JSON numbers >= 1. encoding/json decodes all
// numbers as float64, so fractional quantities are rejected here too.
func isPositiveQuantity(raw any) bool {
	n, ok := raw.(float64)
	if !ok {
		return false
	}
	return n >= 1 && n == float64(int64(n))
}
