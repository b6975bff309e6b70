// Package speech builds the markup handed to the voice provider.
package speech

import (
	"fmt"
	"strings"
)

var (
	escaper   = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "'", "&apos;", "<", "&lt;", ">", "&gt;")
	unescaper = strings.NewReplacer("&amp;", "&", "&quot;", `"`, "&apos;", "'", "&lt;", "<", "&gt;", ">")
)

// Voice selects the provider voice and locale for a Say directive.
type Voice struct {
	Name     string `yaml:"name" json:"name"`
	Language string `yaml:"language" json:"language"`
}

// DefaultVoice is used when configuration leaves the voice empty.
var DefaultVoice = Voice{Name: "alice", Language: "en-US"}

// Escape replaces markup-significant characters with entities.
func Escape(s string) string { return escaper.Replace(s) }

// Unescape reverses Escape.
func Unescape(s string) string { return unescaper.Replace(s) }

// Say wraps text in a TwiML document that speaks it once.
func Say(text string, v Voice) string {
	if v.Name == "" {
		v.Name = DefaultVoice.Name
	}
	if v.Language == "" {
		v.Language = DefaultVoice.Language
	}
	return fmt.Sprintf(`<Response><Say voice="%s" language="%s">%s</Say></Response>`,
		Escape(v.Name), Escape(v.Language), Escape(text))
}
