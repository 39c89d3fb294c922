package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// PlayerName turns "Last, First" into "First Last". Names without a comma
// are returned trimmed.
func PlayerName(s string) string {
	s = collapse(s)
	last, first, ok := strings.Cut(s, ",")
	if !ok {
		return s
	}
	return collapse(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// SplitName splits a heading such as "John Paul Smith" into the first and
// last tokens.
func SplitName(s string) (first, last string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], parts[len(parts)-1]
}

// FinalsRound abbreviates a finals label to its capital letters, so
// "Grand Final" becomes "GF" and "Qualifying Final" becomes "QF".
func FinalsRound(label string) string {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsUpper(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return collapse(label)
	}
	return b.String()
}

var roundPrefixRe = regexp.MustCompile(`(?i)^(?:round|rd|r)\s*(\d+)$`)

// Round brings round labels from different pages to one form: home-and-away
// rounds become their number ("R5", "Round 5" and "5" all give "5") and
// finals become their abbreviation ("Grand Final" and "GF" give "GF").
func Round(label string) string {
	s := collapse(label)
	if s == "" {
		return ""
	}
	if m := roundPrefixRe.FindStringSubmatch(s); m != nil {
		return strings.TrimLeft(m[1], "0")
	}
	if _, err := strconv.Atoi(s); err == nil {
		return strings.TrimLeft(s, "0")
	}
	return FinalsRound(s)
}
