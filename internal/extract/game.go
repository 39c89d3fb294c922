package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/score"
)

var (
	scoreCellRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	yearRe      = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
)

const playerLinkPrefix = "../../players/"

// Game is the result of parsing a game detail page.
type Game struct {
	Match    record.MatchRecord
	Lineups  []record.LineupEntry
	Problems []Problem
}

// ParseGame extracts the match summary and both team lineups from a game
// detail page. The first table holds a "Round: ... Venue: ... Date: ..."
// header and one row per team with cumulative "goals.behinds.points" cells;
// the first two sortable tables list each team's players in the same order.
func ParseGame(doc *goquery.Document, source string, observed time.Time) (*Game, error) {
	summary := doc.Find("table").First()
	if summary.Length() == 0 {
		return nil, fmt.Errorf("game %s: %w", source, ErrNoTable)
	}

	var header string
	var teams []record.RawRow
	for row := range TableRows(summary, 0, source) {
		for _, cell := range row.Cells {
			if strings.Contains(cell, "Round:") && header == "" {
				header = cell
			}
		}
		if len(scoreCells(row.Cells)) >= score.Quarters {
			teams = append(teams, row)
		}
	}
	if header == "" || len(teams) != 2 {
		return nil, fmt.Errorf("game %s: found %d team rows: %w", source, len(teams), ErrNoTable)
	}

	game := &Game{}
	m := record.MatchRecord{ObservedAt: observed}

	info, err := normalize.ParseGameInfo(header)
	m.Round = normalize.Round(info.Round)
	m.Venue = info.Venue
	m.Attendance = info.Attendance
	m.Date = info.Date
	m.RawDate = info.RawDate
	if err != nil {
		game.Problems = append(game.Problems, warning(teams[0], err))
		m.LowConfidence = true
	}
	m.Year = m.Date.Year()
	if m.Date.IsZero() {
		y := yearRe.FindString(header)
		if y == "" {
			return nil, fmt.Errorf("game %s: no season year in %q: %w", source, header, ErrNoTable)
		}
		m.Year, _ = strconv.Atoi(y)
	}

	sides := []struct {
		side *record.Side
		team *string
		code *string
	}{
		{&m.Home, &m.HomeTeam, &m.HomeCode},
		{&m.Away, &m.AwayTeam, &m.AwayCode},
	}
	for i, s := range sides {
		row := teams[i]
		*s.team = row.Cells[0]
		goals, behinds, err := score.Decode(scoreCells(row.Cells)[:score.Quarters])
		if err != nil {
			return nil, fmt.Errorf("game %s: %s: %w", source, row.Cells[0], err)
		}
		s.side.Goals, s.side.Behinds = goals, behinds

		code, err := normalize.TeamCode(*s.team)
		if err != nil {
			game.Problems = append(game.Problems, warning(row, err))
			m.LowConfidence = true
		}
		*s.code = code
	}
	m.Settle()
	game.Match = m

	lineupTeams := []string{m.HomeTeam, m.AwayTeam}
	n := 0
	for _, table := range Tables(doc, HasClass("sortable")) {
		if n == len(lineupTeams) {
			break
		}
		game.Lineups = append(game.Lineups, record.LineupEntry{
			Year:       m.Year,
			Date:       m.Date,
			Round:      m.Round,
			Team:       lineupTeams[n],
			Players:    lineupPlayers(table),
			ObservedAt: observed,
		})
		n++
	}
	return game, nil
}

// scoreCells returns the cells after the team name that look like
// cumulative scores.
func scoreCells(cells []string) []string {
	if len(cells) < 2 {
		return nil
	}
	out := make([]string, 0, len(cells)-1)
	for _, c := range cells[1:] {
		if scoreCellRe.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

func lineupPlayers(table *goquery.Selection) []string {
	players := make([]string, 0)
	seen := make(map[string]bool)
	table.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, playerLinkPrefix) {
			return
		}
		name := normalize.PlayerName(CellText(a))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		players = append(players, name)
	})
	return players
}
