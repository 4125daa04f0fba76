package quote

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validPayload() map[string]any {
	return map[string]any{
		"contactInfo": map[string]any{
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"phone": "+1-555-0100",
		},
		"quoteItems": []any{
			map[string]any{"productName": "Widget", "quantity": float64(3)},
		},
		"metadata": map[string]any{
			"totalItems":          float64(3),
			"totalUniqueProducts": float64(1),
			"submittedAt":         "2026-08-30T12:00:00Z",
		},
		"agreedToContact": true,
	}
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	require.Empty(t, Validate(validPayload()))
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	payload := validPayload()
	contact := payload["contactInfo"].(map[string]any)
	contact["name"] = ""
	contact["email"] = "not-an-email"
	payload["quoteItems"] = []any{
		map[string]any{"productName": "", "quantity": float64(0)},
	}
	payload["agreedToContact"] = false

	errs := Validate(payload)
	assert.Equal(t, []string{
		"contactInfo.name is required",
		"contactInfo.email must be a valid email address",
		"quoteItems[0].productName is required",
		"quoteItems[0].quantity must be a positive number",
		"agreedToContact must be true",
	}, errs)
}

func TestValidateFieldFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{
			name:   "missing contact info",
			mutate: func(p map[string]any) { delete(p, "contactInfo") },
			want:   "contactInfo is required",
		},
		{
			name:   "contact info wrong type",
			mutate: func(p map[string]any) { p["contactInfo"] = "jane" },
			want:   "contactInfo is required",
		},
		{
			name: "whitespace name",
			mutate: func(p map[string]any) {
				p["contactInfo"].(map[string]any)["name"] = "   "
			},
			want: "contactInfo.name is required",
		},
		{
			name: "missing email",
			mutate: func(p map[string]any) {
				delete(p["contactInfo"].(map[string]any), "email")
			},
			want: "contactInfo.email is required",
		},
		{
			name: "email without domain dot",
			mutate: func(p map[string]any) {
				p["contactInfo"].(map[string]any)["email"] = "jane@example"
			},
			want: "contactInfo.email must be a valid email address",
		},
		{
			name: "email with spaces",
			mutate: func(p map[string]any) {
				p["contactInfo"].(map[string]any)["email"] = "jane doe@example.com"
			},
			want: "contactInfo.email must be a valid email address",
		},
		{
			name: "missing phone",
			mutate: func(p map[string]any) {
				delete(p["contactInfo"].(map[string]any), "phone")
			},
			want: "contactInfo.phone is required",
		},
		{
			name:   "missing items",
			mutate: func(p map[string]any) { delete(p, "quoteItems") },
			want:   "quoteItems must be a non-empty array",
		},
		{
			name:   "empty items",
			mutate: func(p map[string]any) { p["quoteItems"] = []any{} },
			want:   "quoteItems must be a non-empty array",
		},
		{
			name:   "items wrong type",
			mutate: func(p map[string]any) { p["quoteItems"] = "widgets" },
			want:   "quoteItems must be a non-empty array",
		},
		{
			name: "fractional quantity",
			mutate: func(p map[string]any) {
				p["quoteItems"] = []any{
					map[string]any{"productName": "Widget", "quantity": 1.5},
				}
			},
			want: "quoteItems[0].quantity must be a positive number",
		},
		{
			name: "quantity as string",
			mutate: func(p map[string]any) {
				p["quoteItems"] = []any{
					map[string]any{"productName": "Widget", "quantity": "3"},
				}
			},
			want: "quoteItems[0].quantity must be a positive number",
		},
		{
			name:   "missing agreement",
			mutate: func(p map[string]any) { delete(p, "agreedToContact") },
			want:   "agreedToContact must be true",
		},
		{
			name:   "agreement as string",
			mutate: func(p map[string]any) { p["agreedToContact"] = "true" },
			want:   "agreedToContact must be true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)
			errs := Validate(payload)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs, tt.want)
		})
	}
}

func TestValidateNonObjectPayload(t *testing.T) {
	for _, payload := range []any{nil, "quote", float64(42), []any{"a"}} {
		errs := Validate(payload)
		assert.Equal(t, []string{
			"request body must be a JSON object",
			"contactInfo is required",
			"quoteItems must be a non-empty array",
			"agreedToContact must be true",
		}, errs, "payload %v", payload)
	}
}

func TestValidateItemErrorsNamePerIndex(t *testing.T) {
	payload := validPayload()
	payload["quoteItems"] = []any{
		map[string]any{"productName": "Widget", "quantity": float64(1)},
		map[string]any{"productName": "", "quantity": float64(2)},
		map[string]any{"productName": "Gadget", "quantity": float64(-1)},
	}

	errs := Validate(payload)
	assert.Equal(t, []string{
		"quoteItems[1].productName is required",
		"quoteItems[2].quantity must be a positive number",
	}, errs)
}

func TestValidateNeverPanicsOnArbitraryJSON(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapidJSONValue(t, 3)
		errs := Validate(payload)
		for _, msg := range errs {
			if msg == "" {
				t.Fatalf("empty validation message")
			}
		}
	})
}

func TestValidateRejectsWithoutAgreement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := validPayload()
		payload["quoteItems"] = []any{
			map[string]any{
				"productName": rapid.StringN(1, 32, 64).Draw(t, "product"),
				"quantity":    float64(rapid.IntRange(1, 10_000).Draw(t, "quantity")),
			},
		}
		payload["agreedToContact"] = rapid.SampledFrom([]any{false, nil, "yes", float64(1)}).Draw(t, "agreed")

		errs := Validate(payload)
		if !containsString(errs, "agreedToContact must be true") {
			t.Fatalf("expected agreement error, got %v", errs)
		}
	})
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// rapidJSONValue generates arbitrary decoded-JSON shapes the way
// encoding/json produces them: strings, float64s, bools, nil, []any,
// map[string]any.
func rapidJSONValue(t *rapid.T, depth int) any {
	kind := rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("kind-%d", depth))
	if depth <= 0 && kind >= 4 {
		kind = 0
	}
	switch kind {
	case 0:
		return rapid.String().Draw(t, "str")
	case 1:
		return rapid.Float64().Draw(t, "num")
	case 2:
		return rapid.Bool().Draw(t, "bool")
	case 3:
		return nil
	case 4:
		n := rapid.IntRange(0, 3).Draw(t, "arrlen")
		arr := make([]any, 0, n)
		for i := 0; i < n; i++ {
			arr = append(arr, rapidJSONValue(t, depth-1))
		}
		return arr
	default:
		n := rapid.IntRange(0, 3).Draw(t, "maplen")
		obj := map[string]any{}
		for i := 0; i < n; i++ {
			key := rapid.SampledFrom([]string{"contactInfo", "quoteItems", "agreedToContact", "metadata", "extra"}).Draw(t, "key")
			obj[key] = rapidJSONValue(t, depth-1)
		}
		return obj
	}
}

func TestValidateRoundTripsThroughJSON(t *testing.T) {
	raw, err := json.Marshal(validPayload())
	require.NoError(t, err)

	var decoded any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Empty(t, Validate(decoded))
}
