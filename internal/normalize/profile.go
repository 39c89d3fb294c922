package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBirthDate stands in for players whose birth date is not published.
var DefaultBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// BirthDate parses "24-Apr-1990" with any trailing " (" removed. An empty
// value yields DefaultBirthDate.
func BirthDate(text string) (time.Time, error) {
	s := strings.TrimSpace(strings.TrimRight(collapse(text), " ("))
	if s == "" {
		return DefaultBirthDate, nil
	}
	t, err := time.Parse("2-Jan-2006", s)
	if err != nil {
		return time.Time{}, &FieldError{Field: "birth date", Value: text, Err: err}
	}
	return t, nil
}

// DebutDate derives the debut date from the birth date and an age such as
// "19y 120d". Years count as 365 days.
func DebutDate(born time.Time, age string) (time.Time, error) {
	parts := strings.Fields(age)
	if len(parts) == 0 {
		return time.Time{}, &FieldError{Field: "debut age", Value: age, Err: fmt.Errorf("empty")}
	}

	years, err := strconv.Atoi(strings.TrimSuffix(parts[0], "y"))
	if err != nil {
		return time.Time{}, &FieldError{Field: "debut age", Value: age, Err: err}
	}
	days := 0
	if len(parts) > 1 {
		days, err = strconv.Atoi(strings.TrimSuffix(parts[1], "d"))
		if err != nil {
			return time.Time{}, &FieldError{Field: "debut age", Value: age, Err: err}
		}
	}
	return born.AddDate(0, 0, years*365+days), nil
}

// Measure reads the leading integer of "188 cm" or "85 kg", or -1.
func Measure(text string) int {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return -1
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return -1
	}
	return n
}
