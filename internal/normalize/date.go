package normalize

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order. Input is upper-cased first so a single
// layout covers both "2:10pm" and "2:10 PM".
var dateLayouts = []string{
	"Mon, 2-Jan-2006 3:04PM",
	"Mon, 2-Jan-2006 3:04 PM",
	"Mon 2-Jan-2006 3:04PM",
	"Mon 2-Jan-2006 3:04 PM",
	"Mon, 2-Jan-2006",
	"Mon 2-Jan-2006",
	"2-Jan-2006 3:04 PM",
	"2-Jan-2006",
}

// ParseDate parses a match date such as "Sat, 24-Apr-2021 2:10pm".
// The result carries no zone; it is the local time printed on the page.
func ParseDate(text string) (time.Time, error) {
	s := strings.ToUpper(collapse(text))
	if s == "" {
		return time.Time{}, &FieldError{Field: "date", Value: text, Err: fmt.Errorf("empty")}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &FieldError{Field: "date", Value: text, Err: fmt.Errorf("no known layout matches")}
}

// collapse trims and squeezes runs of whitespace, including non-breaking spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
