package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/score"
)

// Season is the result of parsing a season results page.
type Season struct {
	Year      int
	Matches   []record.MatchRecord
	GameLinks []string
	Problems  []Problem
}

// ParseSeason extracts every match on a season results page. Home-and-away
// games sit in the top-aligned 85% wide cells, each preceded by an anchor
// naming the round; finals follow the "fin" anchor as alternating label and
// game tables.
func ParseSeason(doc *goquery.Document, year int, source string, observed time.Time) (*Season, error) {
	season := &Season{Year: year}
	tableIndex := 0

	addGame := func(table *goquery.Selection, round string) {
		home, away, ok := seasonRows(table, tableIndex, source)
		tableIndex++
		if !ok {
			return
		}
		m, warnings, err := BuildMatch(year, round, home, away, observed)
		if err != nil {
			season.Problems = append(season.Problems, dropped(home, err))
			return
		}
		for _, w := range warnings {
			season.Problems = append(season.Problems, warning(home, w))
		}
		season.Matches = append(season.Matches, m)
	}

	doc.Find(`td[width="85%"][valign="top"]`).Each(func(_ int, section *goquery.Selection) {
		round := roundAnchor(section)
		section.ChildrenFiltered("table").Each(func(_ int, game *goquery.Selection) {
			addGame(game, round)
		})
	})

	fin := doc.Find(`a[name="fin"]`).First()
	if fin.Length() > 0 {
		table := fin.NextAllFiltered("table").First().NextAllFiltered("table").First()
		for table.Length() > 0 {
			label := table.Find("b").First()
			if label.Length() == 0 {
				table = table.NextAllFiltered("table").First()
				continue
			}
			game := table.NextAllFiltered("table").First()
			if game.Length() == 0 {
				break
			}
			addGame(game, normalize.Round(CellText(label)))
			table = game.NextAllFiltered("table").First()
		}
	}

	if tableIndex == 0 {
		return nil, fmt.Errorf("season %d: %w", year, ErrNoTable)
	}
	season.GameLinks = GameLinks(doc, source)
	return season, nil
}

// roundAnchor finds the nearest named anchor before a section.
func roundAnchor(section *goquery.Selection) string {
	var name string
	for s := section; s.Length() > 0 && name == ""; s = s.Parent() {
		s.PrevAll().EachWithBreak(func(_ int, prev *goquery.Selection) bool {
			anchor := prev.Filter("a[name]")
			if anchor.Length() == 0 {
				anchor = prev.Find("a[name]").Last()
			}
			if v, ok := anchor.Attr("name"); ok {
				name = v
				return false
			}
			return true
		})
	}
	return normalize.Round(name)
}

// seasonRows reduces a game table to two raw rows holding the team name,
// the cumulative score cell and the trailing info cell.
func seasonRows(table *goquery.Selection, index int, source string) (home, away record.RawRow, ok bool) {
	rows := ownRows(table)
	if rows.Length() < 2 {
		return home, away, false
	}
	var out [2]record.RawRow
	for i := 0; i < 2; i++ {
		tr := rows.Eq(i)
		scores := tr.Find(`td[width="20%"]`)
		if scores.Length() == 0 {
			return home, away, false
		}
		out[i] = record.RawRow{
			Cells: []string{
				CellText(tr.Find("a").First()),
				CellText(scores.First()),
				CellText(tr.ChildrenFiltered("td").Last()),
			},
			Table:  index,
			Row:    i,
			Source: source,
		}
	}
	return out[0], out[1], true
}

// BuildMatch assembles a match from the home and away rows of a season
// table. Each row holds the team name, the cumulative quarter scores and an
// info cell; only the home row's info cell is read.
//
// A score that cannot be decoded fails the whole match. Problems with the
// date or team names are returned as warnings and the match is kept, marked
// low-confidence.
func BuildMatch(year int, round string, home, away record.RawRow, observed time.Time) (record.MatchRecord, []error, error) {
	m := record.MatchRecord{Year: year, Round: round, ObservedAt: observed}
	if len(home.Cells) < 3 || len(away.Cells) < 2 {
		return m, nil, fmt.Errorf("game rows have %d and %d cells: %w", len(home.Cells), len(away.Cells), ErrNoTable)
	}

	sides := []struct {
		row  record.RawRow
		side *record.Side
		team *string
		code *string
	}{
		{home, &m.Home, &m.HomeTeam, &m.HomeCode},
		{away, &m.Away, &m.AwayTeam, &m.AwayCode},
	}

	var warnings []error
	for _, s := range sides {
		*s.team = s.row.Cells[0]
		goals, behinds, err := decodeScoreCell(s.row.Cells[1])
		if err != nil {
			return m, nil, fmt.Errorf("%s: %w", s.row.Cells[0], err)
		}
		s.side.Goals, s.side.Behinds = goals, behinds

		code, err := normalize.TeamCode(*s.team)
		if err != nil {
			warnings = append(warnings, err)
			m.LowConfidence = true
		}
		*s.code = code
	}

	info, err := normalize.ParseSeasonInfo(home.Cells[2])
	m.Venue = info.Venue
	m.Attendance = info.Attendance
	m.Date = info.Date
	m.RawDate = info.RawDate
	if err != nil {
		warnings = append(warnings, err)
		m.LowConfidence = true
	}

	m.Settle()
	return m, warnings, nil
}

// decodeScoreCell splits "3.2 7.5 10.8 13.11" into its first four
// cumulative cells and decodes them.
func decodeScoreCell(cell string) (goals, behinds [score.Quarters]int, err error) {
	parts := strings.Fields(cell)
	if len(parts) < score.Quarters {
		return goals, behinds, &score.ParseError{Cell: cell, Reason: "fewer than four quarters"}
	}
	return score.Decode(parts[:score.Quarters])
}

// IsDropped reports whether a problem removed a record.
func IsDropped(err error) bool {
	var p Problem
	return errors.As(err, &p) && p.Dropped
}
