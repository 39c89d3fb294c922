package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
)

const teamTotalsMarker = "Team Totals For"

// ParseTeamTotals extracts each team's season totals from a season
// statistics page.
func ParseTeamTotals(doc *goquery.Document, year int, source string, observed time.Time) ([]record.TeamSeasonRow, []Problem, error) {
	rows := make([]record.TeamSeasonRow, 0)
	var problems []Problem
	found := false

	for raw := range Rows(doc, And(Innermost(), ContainsText(teamTotalsMarker)), source) {
		found = true
		if len(raw.Cells) < 2 || raw.Cells[0] == "" || strings.EqualFold(raw.Cells[0], "totals") {
			continue
		}
		t := record.TeamSeasonRow{Year: year, Team: raw.Cells[0], ObservedAt: observed}
		for i := 0; i < record.NumTeamStats && i+1 < len(raw.Cells); i++ {
			t.Totals[i] = normalize.Float(raw.Cells[i+1])
		}
		if _, err := normalize.TeamCode(t.Team); err != nil {
			problems = append(problems, warning(raw, err))
		}
		rows = append(rows, t)
	}
	if !found {
		return nil, nil, fmt.Errorf("team totals %d: %w", year, ErrNoTable)
	}
	return rows, problems, nil
}
