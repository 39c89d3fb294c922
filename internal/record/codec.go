package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entity names, also used as storage namespaces.
const (
	EntityMatches      = "matches"
	EntityProfiles     = "profiles"
	EntityPerformances = "performances"
	EntityLineups      = "lineups"
	EntityTeamSeasons  = "team_seasons"
)

const (
	dayLayout      = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	observedLayout = time.RFC3339Nano
	playerSep      = ";"
)

// ObservedColumn is the trailing column on every entity; it records when the
// row was extracted and is ignored by change detection.
const ObservedColumn = "observed_at"

// Codec converts records of one entity to flat rows and back, and knows how
// to key them.
type Codec[T any] struct {
	Entity   string
	Columns  []string
	Encode   func(T) []string
	Decode   func([]string) (T, error)
	Key      func(T) string
	Observed func(T) time.Time
}

// MatchColumns is the fixed column order for match records.
var MatchColumns = buildMatchColumns()

func buildMatchColumns() []string {
	cols := []string{
		"year", "round", "venue", "date", "raw_date", "attendance",
		"home_team", "home_code", "away_team", "away_code",
	}
	for _, side := range []string{"home", "away"} {
		for _, kind := range []string{"g", "b"} {
			for q := 1; q <= 4; q++ {
				cols = append(cols, fmt.Sprintf("%s_q%d_%s", side, q, kind))
			}
		}
	}
	cols = append(cols,
		"home_total_g", "home_total_b", "home_total_score",
		"away_total_g", "away_total_b", "away_total_score",
		"winning_team", "margin", "low_confidence", ObservedColumn,
	)
	return cols
}

// ProfileColumns is the fixed column order for player profiles.
var ProfileColumns = []string{
	"first_name", "last_name", "born_date", "debut_date", "height", "weight", ObservedColumn,
}

// PerformanceColumns is the fixed column order for performance rows.
var PerformanceColumns = append(append([]string{
	"player_id", "team", "year", "games_played", "opponent", "round", "result", "jersey_num",
}, StatNames[:]...), ObservedColumn)

// LineupColumns is the fixed column order for lineup entries.
var LineupColumns = []string{"year", "date", "round", "team", "players", ObservedColumn}

// TeamSeasonColumns is the fixed column order for team season totals.
var TeamSeasonColumns = append(append([]string{"year", "team"}, TeamStatNames[:]...), ObservedColumn)

// Matches is the codec for match records.
var Matches = Codec[MatchRecord]{
	Entity:   EntityMatches,
	Columns:  MatchColumns,
	Encode:   encodeMatch,
	Decode:   decodeMatch,
	Key:      MatchKey,
	Observed: func(m MatchRecord) time.Time { return m.ObservedAt },
}

// Profiles is the codec for player profiles.
var Profiles = Codec[PlayerProfile]{
	Entity:   EntityProfiles,
	Columns:  ProfileColumns,
	Encode:   encodeProfile,
	Decode:   decodeProfile,
	Key:      ProfileKey,
	Observed: func(p PlayerProfile) time.Time { return p.ObservedAt },
}

// Performances is the codec for player performance rows.
var Performances = Codec[PlayerPerformanceRow]{
	Entity:   EntityPerformances,
	Columns:  PerformanceColumns,
	Encode:   encodePerformance,
	Decode:   decodePerformance,
	Key:      PerformanceKey,
	Observed: func(r PlayerPerformanceRow) time.Time { return r.ObservedAt },
}

// Lineups is the codec for lineup entries.
var Lineups = Codec[LineupEntry]{
	Entity:   EntityLineups,
	Columns:  LineupColumns,
	Encode:   encodeLineup,
	Decode:   decodeLineup,
	Key:      LineupKey,
	Observed: func(l LineupEntry) time.Time { return l.ObservedAt },
}

// TeamSeasons is the codec for team season totals.
var TeamSeasons = Codec[TeamSeasonRow]{
	Entity:   EntityTeamSeasons,
	Columns:  TeamSeasonColumns,
	Encode:   encodeTeamSeason,
	Decode:   decodeTeamSeason,
	Key:      TeamSeasonKey,
	Observed: func(t TeamSeasonRow) time.Time { return t.ObservedAt },
}

func encodeMatch(m MatchRecord) []string {
	row := make([]string, 0, len(MatchColumns))
	row = append(row,
		strconv.Itoa(m.Year), m.Round, m.Venue, formatTime(m.Date, dateTimeLayout), m.RawDate,
		m.Attendance.String(), m.HomeTeam, m.HomeCode, m.AwayTeam, m.AwayCode,
	)
	for _, side := range []Side{m.Home, m.Away} {
		row = appendInts(row, side.Goals[:])
		row = appendInts(row, side.Behinds[:])
	}
	row = append(row,
		strconv.Itoa(m.Home.TotalGoals()), strconv.Itoa(m.Home.TotalBehinds()), strconv.Itoa(m.Home.Score()),
		strconv.Itoa(m.Away.TotalGoals()), strconv.Itoa(m.Away.TotalBehinds()), strconv.Itoa(m.Away.Score()),
		m.Winner, strconv.Itoa(m.Margin), strconv.FormatBool(m.LowConfidence), formatTime(m.ObservedAt, observedLayout),
	)
	return row
}

func decodeMatch(row []string) (MatchRecord, error) {
	var m MatchRecord
	if err := checkWidth(EntityMatches, row, MatchColumns); err != nil {
		return m, err
	}
	d := &decoder{row: row, cols: MatchColumns}
	m.Year = d.int(0)
	m.Round = row[1]
	m.Venue = row[2]
	m.Date = d.time(3, dateTimeLayout)
	m.RawDate = row[4]
	if a, err := ParseAttendance(row[5]); err != nil {
		d.fail(5, err)
	} else {
		m.Attendance = a
	}
	m.HomeTeam, m.HomeCode, m.AwayTeam, m.AwayCode = row[6], row[7], row[8], row[9]
	i := 10
	for _, side := range []*Side{&m.Home, &m.Away} {
		for q := 0; q < 4; q++ {
			side.Goals[q] = d.int(i + q)
		}
		for q := 0; q < 4; q++ {
			side.Behinds[q] = d.int(i + 4 + q)
		}
		i += 8
	}
	totals := []struct {
		col  int
		want int
	}{
		{i, m.Home.TotalGoals()}, {i + 1, m.Home.TotalBehinds()}, {i + 2, m.Home.Score()},
		{i + 3, m.Away.TotalGoals()}, {i + 4, m.Away.TotalBehinds()}, {i + 5, m.Away.Score()},
	}
	for _, t := range totals {
		if got := d.int(t.col); d.err == nil && got != t.want {
			d.fail(t.col, fmt.Errorf("total %d does not match quarter sum %d", got, t.want))
		}
	}
	m.Winner = row[i+6]
	m.Margin = d.int(i + 7)
	m.LowConfidence = d.bool(i + 8)
	m.ObservedAt = d.time(i+9, observedLayout)
	if d.err != nil {
		return m, d.err
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("decoding %s row: %w", EntityMatches, err)
	}
	return m, nil
}

func encodeProfile(p PlayerProfile) []string {
	return []string{
		p.FirstName, p.LastName, formatTime(p.Born, dayLayout), formatTime(p.Debut, dayLayout),
		strconv.Itoa(p.HeightCM), strconv.Itoa(p.WeightKG), formatTime(p.ObservedAt, observedLayout),
	}
}

func decodeProfile(row []string) (PlayerProfile, error) {
	var p PlayerProfile
	if err := checkWidth(EntityProfiles, row, ProfileColumns); err != nil {
		return p, err
	}
	d := &decoder{row: row, cols: ProfileColumns}
	p.FirstName = row[0]
	p.LastName = row[1]
	p.Born = d.time(2, dayLayout)
	p.Debut = d.time(3, dayLayout)
	p.HeightCM = d.int(4)
	p.WeightKG = d.int(5)
	p.ObservedAt = d.time(6, observedLayout)
	return p, d.err
}

func encodePerformance(r PlayerPerformanceRow) []string {
	row := make([]string, 0, len(PerformanceColumns))
	row = append(row,
		r.PlayerID, r.Team, strconv.Itoa(r.Year), strconv.Itoa(r.Game),
		r.Opponent, r.Round, r.Result, strconv.Itoa(r.Jersey),
	)
	row = appendFloats(row, r.Stats[:])
	return append(row, formatTime(r.ObservedAt, observedLayout))
}

func decodePerformance(row []string) (PlayerPerformanceRow, error) {
	var r PlayerPerformanceRow
	if err := checkWidth(EntityPerformances, row, PerformanceColumns); err != nil {
		return r, err
	}
	d := &decoder{row: row, cols: PerformanceColumns}
	r.PlayerID, r.Team = row[0], row[1]
	r.Year = d.int(2)
	r.Game = d.int(3)
	r.Opponent, r.Round, r.Result = row[4], row[5], row[6]
	r.Jersey = d.int(7)
	for i := range r.Stats {
		r.Stats[i] = d.float(8 + i)
	}
	r.ObservedAt = d.time(8+NumStats, observedLayout)
	return r, d.err
}

func encodeLineup(l LineupEntry) []string {
	return []string{
		strconv.Itoa(l.Year), formatTime(l.Date, dateTimeLayout), l.Round, l.Team,
		strings.Join(l.Players, playerSep), formatTime(l.ObservedAt, observedLayout),
	}
}

func decodeLineup(row []string) (LineupEntry, error) {
	var l LineupEntry
	if err := checkWidth(EntityLineups, row, LineupColumns); err != nil {
		return l, err
	}
	d := &decoder{row: row, cols: LineupColumns}
	l.Year = d.int(0)
	l.Date = d.time(1, dateTimeLayout)
	l.Round, l.Team = row[2], row[3]
	if row[4] != "" {
		l.Players = strings.Split(row[4], playerSep)
	}
	l.ObservedAt = d.time(5, observedLayout)
	return l, d.err
}

func encodeTeamSeason(t TeamSeasonRow) []string {
	row := make([]string, 0, len(TeamSeasonColumns))
	row = append(row, strconv.Itoa(t.Year), t.Team)
	row = appendFloats(row, t.Totals[:])
	return append(row, formatTime(t.ObservedAt, observedLayout))
}

func decodeTeamSeason(row []string) (TeamSeasonRow, error) {
	var t TeamSeasonRow
	if err := checkWidth(EntityTeamSeasons, row, TeamSeasonColumns); err != nil {
		return t, err
	}
	d := &decoder{row: row, cols: TeamSeasonColumns}
	t.Year = d.int(0)
	t.Team = row[1]
	for i := range t.Totals {
		t.Totals[i] = d.float(2 + i)
	}
	t.ObservedAt = d.time(2+NumTeamStats, observedLayout)
	return t, d.err
}

func checkWidth(entity string, row, cols []string) error {
	if len(row) != len(cols) {
		return fmt.Errorf("decoding %s row: got %d columns, want %d", entity, len(row), len(cols))
	}
	return nil
}

// decoder keeps the first conversion error so field assignments stay flat.
type decoder struct {
	row  []string
	cols []string
	err  error
}

func (d *decoder) fail(i int, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("decoding column %s: %w", d.cols[i], err)
	}
}

func (d *decoder) int(i int) int {
	if d.row[i] == "" {
		return 0
	}
	n, err := strconv.Atoi(d.row[i])
	if err != nil {
		d.fail(i, err)
	}
	return n
}

func (d *decoder) float(i int) float64 {
	if d.row[i] == "" {
		return 0
	}
	f, err := strconv.ParseFloat(d.row[i], 64)
	if err != nil {
		d.fail(i, err)
	}
	return f
}

func (d *decoder) bool(i int) bool {
	if d.row[i] == "" {
		return false
	}
	b, err := strconv.ParseBool(d.row[i])
	if err != nil {
		d.fail(i, err)
	}
	return b
}

func (d *decoder) time(i int, layout string) time.Time {
	if d.row[i] == "" {
		return time.Time{}
	}
	t, err := time.Parse(layout, d.row[i])
	if err != nil {
		d.fail(i, err)
	}
	return t
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(layout)
}

func appendInts(row []string, values []int) []string {
	for _, v := range values {
		row = append(row, strconv.Itoa(v))
	}
	return row
}

func appendFloats(row []string, values []float64) []string {
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return row
}
