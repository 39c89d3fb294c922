package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByRound SortOrder = "round"
	SortByTeam  SortOrder = "team"
)

// finalsOrder ranks finals after every home-and-away round.
var finalsOrder = map[string]int{"EF": 1, "QF": 2, "SF": 3, "PF": 4, "GF": 5}

// sortMatches sorts matches based on the specified sort order
func sortMatches(matches []record.MatchRecord, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(matches, func(i, j int) bool {
			return compareByDate(matches[i], matches[j])
		})
	case SortByRound:
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Year != matches[j].Year {
				return matches[i].Year < matches[j].Year
			}
			if ri, rj := roundRank(matches[i].Round), roundRank(matches[j].Round); ri != rj {
				return ri < rj
			}
			return compareByDate(matches[i], matches[j])
		})
	case SortByTeam:
		sort.SliceStable(matches, func(i, j int) bool {
			hi, hj := strings.ToLower(matches[i].HomeTeam), strings.ToLower(matches[j].HomeTeam)
			if hi != hj {
				return hi < hj
			}
			return compareByDate(matches[i], matches[j])
		})
	}
}

// compareByDate reports whether match i comes before match j. Matches
// without a parsed date go last, by season and round.
func compareByDate(i, j record.MatchRecord) bool {
	if !i.Date.IsZero() && !j.Date.IsZero() {
		if !i.Date.Equal(j.Date) {
			return i.Date.Before(j.Date)
		}
		return record.MatchKey(i) < record.MatchKey(j)
	}
	if !i.Date.IsZero() {
		return true
	}
	if !j.Date.IsZero() {
		return false
	}
	if i.Year != j.Year {
		return i.Year < j.Year
	}
	return roundRank(i.Round) < roundRank(j.Round)
}

// roundRank orders numbered rounds by number, then finals, then anything
// unrecognized.
func roundRank(round string) int {
	if n, err := strconv.Atoi(round); err == nil {
		return n
	}
	if f, ok := finalsOrder[strings.ToUpper(round)]; ok {
		return 1000 + f
	}
	return 2000
}

func sortLineups(lineups []record.LineupEntry) {
	sort.SliceStable(lineups, func(i, j int) bool {
		if !lineups[i].Date.Equal(lineups[j].Date) {
			return lineups[i].Date.Before(lineups[j].Date)
		}
		return lineups[i].Team < lineups[j].Team
	})
}

func sortTeamSeasons(rows []record.TeamSeasonRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Team < rows[j].Team
	})
}
