package script

import (
	"strings"

	"ringline/internal/domain"
)

// DefaultCaller stands in for the caller when no usable name was given.
const DefaultCaller = "your assistant"

const (
	closing  = "Thank you, and have a great day."
	noNumber = "Please reach out at your convenience."
)

// Synthesize renders a normalized call request into the text spoken on the
// call. It is a pure function of its input; markup escaping happens later, at
// the provider boundary.
func Synthesize(r domain.CallRequest) string {
	caller := callerLabel(r.CallerName)
	segments := []string{
		"Hello " + strings.TrimSpace(r.RecipientName) + ".",
		"This is an automated call on behalf of " + caller + ".",
	}
	if objective := strings.TrimSpace(r.Objective); objective != "" {
		segments = append(segments, objective)
	}
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		segments = append(segments, "Additional context from "+caller+": "+notes)
	}
	if number := strings.TrimSpace(r.CallerNumber); number != "" {
		segments = append(segments, "You can reach "+caller+" at "+number+".")
	} else {
		segments = append(segments, noNumber)
	}
	segments = append(segments, closing)
	return strings.Join(segments, " ")
}

func callerLabel(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return DefaultCaller
}
