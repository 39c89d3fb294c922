package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pfrederiksen/afl-stats/internal/aggregate"
	"github.com/pfrederiksen/afl-stats/internal/pipeline"
	"github.com/pfrederiksen/afl-stats/internal/record"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// StatsResult is the output of the stats command.
type StatsResult struct {
	PlayerID      string                `json:"player_id"`
	Games         int                   `json:"games"`
	Score         float64               `json:"value_score"`
	Yearly        map[int]aggregate.Set `json:"yearly"`
	AllTime       aggregate.Set         `json:"all_time"`
	Probabilities []ProbabilityResult   `json:"probabilities,omitempty"`
}

// ProbabilityResult is the share of games reaching a threshold, all-time
// and per season.
type ProbabilityResult struct {
	Stat        string          `json:"stat"`
	Threshold   float64         `json:"threshold"`
	Probability float64         `json:"probability"`
	Yearly      map[int]float64 `json:"yearly"`
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteSummary writes a run summary in the specified format
func WriteSummary(w io.Writer, s *pipeline.Summary, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		return writeSummaryText(w, s, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeSummaryText(w io.Writer, s *pipeline.Summary, verbose bool) error {
	fmt.Fprintf(w, "Run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Documents: %d\n", s.Documents)
	fmt.Fprintf(w, "Records: %d inserted, %d replaced, %d unchanged", s.Inserted, s.Replaced, s.Unchanged)
	if s.Stale > 0 {
		fmt.Fprintf(w, ", %d stale", s.Stale)
	}
	fmt.Fprintln(w)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped: %s\n", reasonCounts(s.Skipped))
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings: %s\n", reasonCounts(s.Warnings))
	}
	fmt.Fprintf(w, "Partitions: %d persisted, %d failed\n", len(s.Succeeded), len(s.Failed))

	failed := make([]string, 0, len(s.Failed))
	for p := range s.Failed {
		failed = append(failed, p)
	}
	sort.Strings(failed)
	for _, p := range failed {
		fmt.Fprintf(w, "  FAILED %s: %s\n", p, s.Failed[p])
	}

	if verbose {
		for _, key := range s.LowConfidence {
			fmt.Fprintf(w, "  LOW CONFIDENCE: %s\n", key)
		}
		for _, c := range s.Changes {
			if c.ChangeType == record.ChangeInserted {
				fmt.Fprintf(w, "  NEW: %s\n", c.Key)
				continue
			}
			fmt.Fprintf(w, "  CHANGED: %s %s %q -> %q\n", c.Key, c.Column, c.OldValue, c.NewValue)
		}
	}
	return nil
}

func reasonCounts(counts map[pipeline.Reason]int) string {
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", r, counts[pipeline.Reason(r)]))
	}
	return strings.Join(parts, " ")
}

// WriteMatches writes match results as a table or JSON.
func WriteMatches(w io.Writer, matches []record.MatchRecord, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return nil
	}
	headers := []string{"Date", "Round", "Home", "Score", "Away", "Score", "Result", "Venue", "Attendance"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		result := "drawn"
		if m.Winner != record.Draw {
			result = fmt.Sprintf("%s by %d", m.Winner, m.Margin)
		}
		home, away := m.HomeTeam, m.AwayTeam
		if m.LowConfidence {
			home += " *"
		}
		rows = append(rows, []string{
			matchDate(m), m.Round, home, strconv.Itoa(m.Home.Score()),
			away, strconv.Itoa(m.Away.Score()), result, m.Venue, m.Attendance.String(),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))
	fmt.Fprintf(w, "\nTotal: %d matches\n", len(matches))
	return nil
}

func matchDate(m record.MatchRecord) string {
	if m.Date.IsZero() {
		return m.RawDate
	}
	return m.Date.Format("2006-01-02 15:04")
}

// WriteLineups writes lineups as a table or JSON. Player names are listed
// only when verbose.
func WriteLineups(w io.Writer, lineups []record.LineupEntry, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, lineups)
	}
	if len(lineups) == 0 {
		fmt.Fprintln(w, "No lineups found.")
		return nil
	}
	headers := []string{"Date", "Round", "Team", "Players"}
	rows := make([][]string, 0, len(lineups))
	for _, l := range lineups {
		players := strconv.Itoa(len(l.Players))
		if verbose {
			players = strings.Join(l.Players, ", ")
		}
		rows = append(rows, []string{l.Date.Format("2006-01-02"), l.Round, l.Team, players})
	}
	fmt.Fprintln(w, renderTable(headers, rows, nil))
	fmt.Fprintf(w, "\nTotal: %d lineups\n", len(lineups))
	return nil
}

// teamColumns are the totals shown in the text table; JSON carries all.
var teamColumns = []string{"disposals", "goals", "behinds", "tackles", "inside_50s", "clearances"}

// WriteTeamSeasons writes team season totals as a table or JSON.
func WriteTeamSeasons(w io.Writer, rows []record.TeamSeasonRow, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No team seasons found.")
		return nil
	}
	index := make(map[string]int, record.NumTeamStats)
	for i, name := range record.TeamStatNames {
		index[name] = i
	}
	headers := append([]string{"Year", "Team"}, teamColumns...)
	aligns := []columnAlignment{alignLeft, alignLeft}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{strconv.Itoa(r.Year), r.Team}
		for _, c := range teamColumns {
			line = append(line, formatNumber(r.Totals[index[c]]))
		}
		out = append(out, line)
	}
	for range teamColumns {
		aligns = append(aligns, alignRight)
	}
	fmt.Fprintln(w, renderTable(headers, out, aligns))
	return nil
}

// WriteStats writes a player's aggregates: one table per season and one
// all-time.
func WriteStats(w io.Writer, result *StatsResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "%s: %d games, value score %.1f\n", result.PlayerID, result.Games, result.Score)

	headers := []string{"Season", "Stat", "Min", "Max", "Mean", "Games"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
	var rows [][]string
	addSet := func(label string, set aggregate.Set) {
		for _, name := range record.StatNames {
			st, ok := set[name]
			if !ok {
				continue
			}
			rows = append(rows, []string{
				label, name, formatNumber(st.Min), formatNumber(st.Max),
				strconv.FormatFloat(st.Mean, 'f', 2, 64), strconv.Itoa(st.Samples),
			})
		}
	}
	for _, y := range aggregate.Years(result.Yearly) {
		addSet(strconv.Itoa(y), result.Yearly[y])
	}
	addSet(aggregate.AllTime, result.AllTime)
	fmt.Fprintln(w, renderTable(headers, rows, aligns))

	for _, p := range result.Probabilities {
		label := fmt.Sprintf("P(%s >= %s)", p.Stat, formatNumber(p.Threshold))
		years := make([]int, 0, len(p.Yearly))
		for y := range p.Yearly {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			fmt.Fprintf(w, "%s %d = %.1f%%\n", label, y, p.Yearly[y]*100)
		}
		fmt.Fprintf(w, "%s %s = %.1f%%\n", label, aggregate.AllTime, p.Probability*100)
	}
	return nil
}

// WriteRanking writes a value score ranking.
func WriteRanking(w io.Writer, ranked []aggregate.Ranked, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, ranked)
	}
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No players stored.")
		return nil
	}
	headers := []string{"#", "Player", "Games", "Score"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight}
	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), r.PlayerID, strconv.Itoa(r.Games), strconv.FormatFloat(r.Score, 'f', 1, 64),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
