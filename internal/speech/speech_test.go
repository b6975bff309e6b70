package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringline/internal/domain"
	"ringline/internal/script"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry &lt;3 &quot;hi&quot; it&apos;s &gt;", Escape(`Tom & Jerry <3 "hi" it's >`))
	assert.Equal(t, "plain text", Escape("plain text"))
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"&amp; already looks escaped",
		`<Say voice="x">injected</Say>`,
		"it's & <b>bold</b> \"quoted\"",
		script.Synthesize(domain.CallRequest{
			CallerName:    "O'Brien & Sons",
			RecipientName: "<Front Desk>",
			Objective:     `Ask about the "deluxe" package`,
			Notes:         "&lt; literal entity text",
		}),
	}
	for _, in := range inputs {
		require.Equal(t, in, Unescape(Escape(in)), in)
	}
}

func TestSay(t *testing.T) {
	got := Say("Hello & goodbye", Voice{})
	assert.Equal(t, `<Response><Say voice="alice" language="en-US">Hello &amp; goodbye</Say></Response>`, got)

	got = Say("Hi", Voice{Name: "Polly.Joanna", Language: "en-GB"})
	assert.Equal(t, `<Response><Say voice="Polly.Joanna" language="en-GB">Hi</Say></Response>`, got)
}
