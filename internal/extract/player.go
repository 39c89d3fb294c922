package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/afl-stats/internal/normalize"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"golang.org/x/net/html"
)

// careerTableColumns is the colspan of the per-season game-by-game header.
const careerTableColumns = 28

// leadingColumns precede the statistics on a game-by-game row:
// game number, opponent, round, result and jersey number.
const leadingColumns = 5

// Player is the result of parsing a player career page.
type Player struct {
	Profile  record.PlayerProfile
	Rows     []record.PlayerPerformanceRow
	Problems []Problem
}

// ParsePlayer extracts the personal details and every game-by-game row
// from a player page. Each season table is introduced by a header such as
// "Carlton - 2021".
func ParsePlayer(doc *goquery.Document, source string, observed time.Time) (*Player, error) {
	first, last := normalize.SplitName(CellText(doc.Find("h1").First()))
	if first == "" || last == "" {
		return nil, fmt.Errorf("player %s: %w", source, &normalize.FieldError{Field: "player name", Value: CellText(doc.Find("h1").First())})
	}

	p := &Player{}
	profile := record.PlayerProfile{FirstName: first, LastName: last, ObservedAt: observed}
	origin := record.RawRow{Source: source, Table: -1, Row: -1}

	born, err := normalize.BirthDate(labelValue(doc, "Born:"))
	if err != nil {
		p.Problems = append(p.Problems, warning(origin, err))
		born = normalize.DefaultBirthDate
	}
	profile.Born = born

	if age := labelValue(doc, "Debut:"); age != "" {
		debut, err := normalize.DebutDate(born, age)
		if err != nil {
			p.Problems = append(p.Problems, warning(origin, err))
		} else {
			profile.Debut = debut
		}
	}
	profile.HeightCM = normalize.Measure(labelValue(doc, "Height:"))
	profile.WeightKG = normalize.Measure(labelValue(doc, "Weight:"))

	if err := profile.Validate(); err != nil {
		p.Problems = append(p.Problems, warning(origin, err))
		profile.Debut = time.Time{}
	}
	p.Profile = profile
	id := profile.ID()

	for i, table := range Tables(doc, HeaderColspan(careerTableColumns)) {
		heading := CellText(table.Find(fmt.Sprintf(`th[colspan="%d"]`, careerTableColumns)).First())
		team, yearText, ok := strings.Cut(heading, " - ")
		year, err := strconv.Atoi(strings.TrimSpace(yearText))
		if !ok || err != nil {
			p.Problems = append(p.Problems, dropped(record.RawRow{Source: source, Table: i}, &normalize.FieldError{Field: "season heading", Value: heading, Err: err}))
			continue
		}
		team = strings.TrimSpace(team)

		for row := range TableRows(table, i, source) {
			perf, err := PerformanceFromRow(id, team, year, row, observed)
			if err != nil {
				p.Problems = append(p.Problems, dropped(row, err))
				continue
			}
			p.Rows = append(p.Rows, perf)
		}
	}
	return p, nil
}

// PerformanceFromRow converts one game-by-game row. Statistic cells that are
// empty or not numeric count as zero.
func PerformanceFromRow(playerID, team string, year int, row record.RawRow, observed time.Time) (record.PlayerPerformanceRow, error) {
	r := record.PlayerPerformanceRow{PlayerID: playerID, Team: team, Year: year, ObservedAt: observed}
	c := row.Cells
	if len(c) < leadingColumns {
		return r, &normalize.FieldError{Field: "performance row", Value: strings.Join(c, " "), Err: fmt.Errorf("%d cells", len(c))}
	}
	r.Game = normalize.Int(c[0])
	r.Opponent = c[1]
	r.Round = normalize.Round(c[2])
	r.Result = c[3]
	r.Jersey = normalize.Int(c[4])
	for i := 0; i < record.NumStats && leadingColumns+i < len(c); i++ {
		r.Stats[i] = normalize.Float(c[leadingColumns+i])
	}
	return r, nil
}

// labelValue returns the text that follows a bold label such as "Born:".
func labelValue(doc *goquery.Document, label string) string {
	b := doc.Find("b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == label
	}).First()
	if b.Length() == 0 {
		return ""
	}
	for n := b.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				return text
			}
			continue
		}
		break
	}
	return ""
}
