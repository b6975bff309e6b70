package script_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ringline/internal/domain"
	"ringline/internal/script"
)

func TestSynthesizeMinimal(t *testing.T) {
	got := script.Synthesize(domain.CallRequest{
		CallerName:      "Alice",
		RecipientName:   "Bob",
		RecipientNumber: "+15551234567",
		Objective:       "I would like to confirm tomorrow's appointment.",
	})
	want := "Hello Bob. This is an automated call on behalf of Alice. " +
		"I would like to confirm tomorrow's appointment. " +
		"Please reach out at your convenience. Thank you, and have a great day."
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Additional context")
	assert.NotContains(t, got, "You can reach")
}

func TestSynthesizeOptionalSegmentsInOrder(t *testing.T) {
	got := script.Synthesize(domain.CallRequest{
		CallerName:      "Alice",
		CallerNumber:    "+15550001111",
		RecipientName:   "Bob",
		RecipientNumber: "+15551234567",
		Objective:       "Reschedule the delivery",
		Notes:           "Any weekday after 3pm works",
	})
	objective := strings.Index(got, "Reschedule the delivery")
	notes := strings.Index(got, "Additional context from Alice: Any weekday after 3pm works")
	callback := strings.Index(got, "You can reach Alice at +15550001111.")
	closing := strings.Index(got, "Thank you, and have a great day.")
	assert.True(t, objective > 0)
	assert.True(t, notes > objective)
	assert.True(t, callback > notes)
	assert.True(t, closing > callback)
	assert.NotContains(t, got, "at your convenience")
}

func TestSynthesizeDeterministic(t *testing.T) {
	req := domain.CallRequest{
		CallerName:    "Dana",
		RecipientName: "Front desk",
		Objective:     "Book a table for four at 7pm",
		Notes:         `Ask for the "garden" room & a high chair`,
	}
	first := script.Synthesize(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, script.Synthesize(req))
	}
	assert.Contains(t, first, `"garden" room & a high chair`)
}

func TestSynthesizeFallbackCaller(t *testing.T) {
	got := script.Synthesize(domain.CallRequest{
		CallerName:    "  ",
		RecipientName: "Bob",
		Objective:     "Check in on the order",
		Notes:         "Order 42",
	})
	assert.Contains(t, got, "on behalf of "+script.DefaultCaller+".")
	assert.Contains(t, got, "Additional context from "+script.DefaultCaller+": Order 42")
}
