package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FirstSeason is the earliest season the record source covers.
const FirstSeason = 1897

var yearRangeRe = regexp.MustCompile(`^(\d{4})?\s*(-)?\s*(\d{4})?$`)

// ParseYearRange parses a season range.
//
// Supported formats:
//   - "2021" - a single season
//   - "2019-2021" - an inclusive range
//   - "2019-" - from 2019 onwards (to is 0)
//   - "-2005" - up to 2005 (from is 0)
func ParseYearRange(input string) (from, to int, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, 0, fmt.Errorf("year range cannot be empty")
	}

	m := yearRangeRe.FindStringSubmatch(input)
	if m == nil || (m[1] == "" && m[3] == "") {
		return 0, 0, fmt.Errorf("invalid year range %q. Use '2021', '2019-2021', '2019-' or '-2005'", input)
	}
	if m[1] != "" {
		from, _ = strconv.Atoi(m[1])
	}
	if m[3] != "" {
		to, _ = strconv.Atoi(m[3])
	}
	if m[2] == "" {
		if m[1] != "" && m[3] != "" {
			return 0, 0, fmt.Errorf("invalid year range %q", input)
		}
		if from == 0 {
			from = to
		}
		to = from
	}

	if from != 0 && from < FirstSeason {
		return 0, 0, fmt.Errorf("year %d is before the first season (%d)", from, FirstSeason)
	}
	if from != 0 && to != 0 && from > to {
		return 0, 0, fmt.Errorf("start year must not be after end year")
	}
	return from, to, nil
}

// Seasons expands an inclusive range into the list of seasons. An open end
// is closed with FirstSeason or the current year.
func Seasons(from, to int) []int {
	if from == 0 {
		from = FirstSeason
	}
	if to == 0 {
		to = time.Now().Year()
	}
	var years []int
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

// ParseRounds splits a comma-separated round list such as "1-3,QF,GF".
// Numeric ranges are expanded.
func ParseRounds(input string) ([]string, error) {
	var rounds []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, found := strings.Cut(part, "-")
		if !found {
			rounds = append(rounds, part)
			continue
		}
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil || a < 1 || a > b {
			return nil, fmt.Errorf("invalid round range %q", part)
		}
		for r := a; r <= b; r++ {
			rounds = append(rounds, strconv.Itoa(r))
		}
	}
	return rounds, nil
}

// ParseDate parses a YYYY-MM-DD date for the date range criteria. End dates
// should be passed through EndOfDay.
func ParseDate(input string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", input)
	}
	return &t, nil
}

// EndOfDay moves t to 23:59:59 on the same day.
func EndOfDay(t *time.Time) *time.Time {
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
	return &end
}
