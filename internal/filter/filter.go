// Package filter narrows stored records for the query commands.
//
// Criteria combine with AND; within a list (teams, rounds) any entry may
// match. An empty filter matches every record.
//
// Example usage:
//
//	from, to, _ := filter.ParseYearRange("2019-2021")
//	f := filter.NewFilter()
//	f.YearFrom, f.YearTo = from, to
//	f.Teams = []string{"Carlton"}
//	matches = filter.Apply(matches, f.MatchesMatch)
package filter

import (
	"strings"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
)

// Filter represents record filtering criteria
type Filter struct {
	// Season range, inclusive; zero leaves that end open
	YearFrom int `json:"year_from,omitempty"`
	YearTo   int `json:"year_to,omitempty"`

	// Match date range, inclusive
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Team names or codes; names also match by case-insensitive substring
	Teams []string `json:"teams,omitempty"`

	// Round labels, normalized before comparison ("R5" equals "5")
	Rounds []string `json:"rounds,omitempty"`

	// Finals only (rounds that are not numbered)
	FinalsOnly bool `json:"finals_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
func NewFilter() *Filter {
	return &Filter{
		Teams:  []string{},
		Rounds: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.YearFrom == 0 &&
		f.YearTo == 0 &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Teams) == 0 &&
		len(f.Rounds) == 0 &&
		!f.FinalsOnly
}

// MatchesMatch checks if a match result passes all active criteria. A match
// passes the team criterion when either side matches.
func (f *Filter) MatchesMatch(m record.MatchRecord) bool {
	if f.IsEmpty() {
		return true
	}
	if !f.matchYear(m.Year) || !f.matchRound(m.Round) {
		return false
	}

	// Matches with an unparsed date are kept; the date cannot rule them out.
	if !m.Date.IsZero() {
		if f.DateFrom != nil && m.Date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && m.Date.After(*f.DateTo) {
			return false
		}
	}

	if len(f.Teams) > 0 && !f.matchTeam(m.HomeTeam, m.HomeCode) && !f.matchTeam(m.AwayTeam, m.AwayCode) {
		return false
	}
	return true
}

// MatchesPerformance checks if a performance row passes all active criteria.
// The date range does not apply since rows carry no date.
func (f *Filter) MatchesPerformance(r record.PlayerPerformanceRow) bool {
	if f.IsEmpty() {
		return true
	}
	if !f.matchYear(r.Year) || !f.matchRound(r.Round) {
		return false
	}
	if len(f.Teams) > 0 && !f.matchTeam(r.Team, "") {
		return false
	}
	return true
}

// MatchesLineup checks if a lineup passes all active criteria.
func (f *Filter) MatchesLineup(l record.LineupEntry) bool {
	if f.IsEmpty() {
		return true
	}
	if !f.matchYear(l.Year) || !f.matchRound(l.Round) {
		return false
	}
	if !l.Date.IsZero() {
		if f.DateFrom != nil && l.Date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && l.Date.After(*f.DateTo) {
			return false
		}
	}
	if len(f.Teams) > 0 && !f.matchTeam(l.Team, "") {
		return false
	}
	return true
}

// MatchesTeamSeason checks if a team season row passes the year and team
// criteria.
func (f *Filter) MatchesTeamSeason(t record.TeamSeasonRow) bool {
	if f.IsEmpty() {
		return true
	}
	if !f.matchYear(t.Year) {
		return false
	}
	if len(f.Teams) > 0 && !f.matchTeam(t.Team, "") {
		return false
	}
	return true
}

func (f *Filter) matchYear(year int) bool {
	if f.YearFrom != 0 && year < f.YearFrom {
		return false
	}
	if f.YearTo != 0 && year > f.YearTo {
		return false
	}
	return true
}

func (f *Filter) matchRound(round string) bool {
	r := normalize.Round(round)
	if f.FinalsOnly && !isFinal(r) {
		return false
	}
	if len(f.Rounds) == 0 {
		return true
	}
	for _, want := range f.Rounds {
		if strings.EqualFold(normalize.Round(want), r) {
			return true
		}
	}
	return false
}

func (f *Filter) matchTeam(name, code string) bool {
	if code == "" {
		code, _ = normalize.TeamCode(name)
	}
	nameLower := strings.ToLower(name)
	for _, team := range f.Teams {
		if code != "" && strings.EqualFold(team, code) {
			return true
		}
		if wantCode, err := normalize.TeamCode(team); err == nil && wantCode == code {
			return true
		}
		if strings.Contains(nameLower, strings.ToLower(team)) {
			return true
		}
	}
	return false
}

func isFinal(round string) bool {
	if round == "" {
		return false
	}
	for _, r := range round {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// Apply returns the records for which keep reports true. A nil keep returns
// records unchanged.
func Apply[T any](records []T, keep func(T) bool) []T {
	if keep == nil {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
