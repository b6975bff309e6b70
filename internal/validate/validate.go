package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ringline/internal/domain"
)

const (
	FieldCallerName      = "callerName"
	FieldRecipientName   = "recipientName"
	FieldRecipientNumber = "recipientNumber"
	FieldObjective       = "objective"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// FieldError reports a single rule violation on a call request field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string { return e.Reason }

type rule struct {
	field string
	check func(domain.CallRequest) string
}

// rules run in this order; Validate reports the first failure.
var rules = []rule{
	{FieldCallerName, func(r domain.CallRequest) string {
		return minLength(r.CallerName, 2, "Caller name must be at least 2 characters.")
	}},
	{FieldRecipientName, func(r domain.CallRequest) string {
		return minLength(r.RecipientName, 2, "Recipient name must be at least 2 characters.")
	}},
	{FieldRecipientNumber, func(r domain.CallRequest) string {
		if !phonePattern.MatchString(r.RecipientNumber) {
			return "Recipient number must be a valid phone number in E.164 format (e.g. +15551234567)."
		}
		return ""
	}},
	{FieldObjective, func(r domain.CallRequest) string {
		return minLength(r.Objective, 5, "Objective must be at least 5 characters.")
	}},
}

// Normalize trims leading and trailing whitespace on every field.
func Normalize(r domain.CallRequest) domain.CallRequest {
	return domain.CallRequest{
		CallerName:      strings.TrimSpace(r.CallerName),
		CallerNumber:    strings.TrimSpace(r.CallerNumber),
		RecipientName:   strings.TrimSpace(r.RecipientName),
		RecipientNumber: strings.TrimSpace(r.RecipientNumber),
		Objective:       strings.TrimSpace(r.Objective),
		Notes:           strings.TrimSpace(r.Notes),
	}
}

// Validate returns the normalized request, or a *FieldError for the first
// violated field.
func Validate(r domain.CallRequest) (domain.CallRequest, error) {
	n := Normalize(r)
	for _, rl := range rules {
		if reason := rl.check(n); reason != "" {
			return domain.CallRequest{}, &FieldError{Field: rl.field, Reason: reason}
		}
	}
	return n, nil
}

// All returns every violated field in rule order. An empty result means the
// request is valid.
func All(r domain.CallRequest) []FieldError {
	n := Normalize(r)
	var issues []FieldError
	for _, rl := range rules {
		if reason := rl.check(n); reason != "" {
			issues = append(issues, FieldError{Field: rl.field, Reason: reason})
		}
	}
	return issues
}

func minLength(v string, n int, msg string) string {
	if utf8.RuneCountInString(v) < n {
		return msg
	}
	return ""
}

// String renders a list of issues for terminal output.
func String(issues []FieldError) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Reason))
	}
	return strings.Join(parts, "\n")
}
