package models

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/dlclark/regexp2"
)

// Selector picks tunnel instances by interface name. Patterns are matched as
// wildcards unless prefixed with "re:" (regular expression) or "=" (exact).
type Selector struct {
	Type    string
	Pattern string
}

func ParseSelector(s string) Selector {
	switch {
	case strings.HasPrefix(s, "re:"):
		return Selector{Type: "regex", Pattern: strings.TrimPrefix(s, "re:")}
	case strings.HasPrefix(s, "="):
		return Selector{Type: "plaintext", Pattern: strings.TrimPrefix(s, "=")}
	}
	return Selector{Type: "wildcard", Pattern: s}
}

// IsExact reports whether the selector names exactly one instance.
func (s Selector) IsExact() bool {
	return s.Type == "plaintext" || (s.Type == "wildcard" && !strings.ContainsAny(s.Pattern, "*?."))
}

func (s Selector) IsMatch(name string) bool {
	switch s.Type {
	case "wildcard":
		return wildcard.Match(s.Pattern, name)
	case "regex":
		re, err := regexp2.Compile(s.Pattern, regexp2.None)
		if err != nil {
			return false
		}
		ok, _ := re.MatchString(name)
		return ok
	case "plaintext":
		return name == s.Pattern
	}
	return false
}
