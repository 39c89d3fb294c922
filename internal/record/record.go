package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Draw is stored as the winning team when both sides finish level.
const Draw = "drawn"

// unknownAttendance is the serialized form of an unrecorded crowd.
const unknownAttendance = "unknown"

// RawRow is one table row as extracted from a document, before any typing.
type RawRow struct {
	Cells  []string
	Table  int // index of the matching table within the document
	Row    int // index of the row within its table
	Source string
}

// Attendance is a crowd figure that distinguishes "not recorded" from zero.
type Attendance struct {
	Count int
	Known bool
}

// KnownAttendance returns a recorded crowd figure.
func KnownAttendance(n int) Attendance {
	return Attendance{Count: n, Known: true}
}

// UnknownAttendance returns the sentinel for an unrecorded crowd.
func UnknownAttendance() Attendance {
	return Attendance{}
}

func (a Attendance) String() string {
	if !a.Known {
		return unknownAttendance
	}
	return strconv.Itoa(a.Count)
}

// ParseAttendance reverses String.
func ParseAttendance(s string) (Attendance, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, unknownAttendance) {
		return UnknownAttendance(), nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return Attendance{}, fmt.Errorf("parsing attendance %q: %w", s, err)
	}
	return KnownAttendance(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Attendance) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Attendance) UnmarshalText(b []byte) error {
	parsed, err := ParseAttendance(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Side holds one team's per-quarter (non-cumulative) scoring.
type Side struct {
	Goals   [4]int `json:"goals"`
	Behinds [4]int `json:"behinds"`
}

// TotalGoals sums the quarter goals.
func (s Side) TotalGoals() int {
	return s.Goals[0] + s.Goals[1] + s.Goals[2] + s.Goals[3]
}

// TotalBehinds sums the quarter behinds.
func (s Side) TotalBehinds() int {
	return s.Behinds[0] + s.Behinds[1] + s.Behinds[2] + s.Behinds[3]
}

// Score is the total points: six per goal, one per behind.
func (s Side) Score() int {
	return s.TotalGoals()*6 + s.TotalBehinds()
}

// MatchRecord is the result of a single match.
type MatchRecord struct {
	Year       int        `json:"year"`
	Round      string     `json:"round"`
	Venue      string     `json:"venue"`
	Date       time.Time  `json:"date,omitempty"`
	RawDate    string     `json:"raw_date,omitempty"` // kept when Date could not be parsed
	Attendance Attendance `json:"attendance"`
	HomeTeam   string     `json:"home_team"`
	HomeCode   string     `json:"home_code"`
	AwayTeam   string     `json:"away_team"`
	AwayCode   string     `json:"away_code"`
	Home       Side       `json:"home"`
	Away       Side       `json:"away"`
	Winner     string     `json:"winning_team"`
	Margin     int        `json:"margin"`
	// LowConfidence marks records with an unparsed date or an unresolved team code.
	LowConfidence bool      `json:"low_confidence,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Settle fills Winner and Margin from the quarter scores.
func (m *MatchRecord) Settle() {
	home, away := m.Home.Score(), m.Away.Score()
	switch {
	case home > away:
		m.Winner = m.HomeTeam
	case away > home:
		m.Winner = m.AwayTeam
	default:
		m.Winner = Draw
	}
	m.Margin = home - away
	if m.Margin < 0 {
		m.Margin = -m.Margin
	}
}

// Validate checks that the derived result fields agree with the scores.
func (m *MatchRecord) Validate() error {
	expected := *m
	expected.Settle()
	if m.Winner != expected.Winner {
		return fmt.Errorf("winning team %q does not match scores (expected %q)", m.Winner, expected.Winner)
	}
	if m.Margin != expected.Margin {
		return fmt.Errorf("margin %d does not match scores (expected %d)", m.Margin, expected.Margin)
	}
	return nil
}

// PlayerProfile holds a player's personal details.
type PlayerProfile struct {
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Born       time.Time `json:"born"`
	Debut      time.Time `json:"debut,omitempty"`
	HeightCM   int       `json:"height_cm"` // -1 when not published
	WeightKG   int       `json:"weight_kg"` // -1 when not published
	ObservedAt time.Time `json:"observed_at"`
}

// ID returns the player identity used to key and partition the player's rows.
func (p *PlayerProfile) ID() string {
	return PlayerID(p.LastName, p.FirstName, p.Born)
}

// Validate checks the profile invariants.
func (p *PlayerProfile) Validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("player name is incomplete")
	}
	if !p.Debut.IsZero() && p.Debut.Before(p.Born) {
		return fmt.Errorf("debut %s is before birth %s", p.Debut.Format(dayLayout), p.Born.Format(dayLayout))
	}
	return nil
}

// NumStats is the number of per-game statistics on a performance row.
const NumStats = 23

// StatNames lists the per-game statistics in column order.
var StatNames = [NumStats]string{
	"kicks", "marks", "handballs", "disposals", "goals", "behinds", "hit_outs",
	"tackles", "rebound_50s", "inside_50s", "clearances", "clangers",
	"free_kicks_for", "free_kicks_against", "brownlow_votes",
	"contested_possessions", "uncontested_possessions", "contested_marks",
	"marks_inside_50", "one_percenters", "bounces", "goal_assist",
	"percentage_of_game_played",
}

// StatIndex returns the position of name in StatNames, or -1.
func StatIndex(name string) int {
	for i, n := range StatNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Stats holds one value per entry of StatNames.
type Stats [NumStats]float64

// Get returns the named statistic; unknown names read as zero.
func (s Stats) Get(name string) float64 {
	if i := StatIndex(name); i >= 0 {
		return s[i]
	}
	return 0
}

// PlayerPerformanceRow is one player's line for one game.
type PlayerPerformanceRow struct {
	PlayerID   string    `json:"player_id"`
	Team       string    `json:"team"`
	Year       int       `json:"year"`
	Game       int       `json:"games_played"` // game number within the season
	Opponent   string    `json:"opponent"`
	Round      string    `json:"round"`
	Result     string    `json:"result"`
	Jersey     int       `json:"jersey_num"`
	Stats      Stats     `json:"stats"`
	ObservedAt time.Time `json:"observed_at"`
}

// LineupEntry lists the players a team fielded in one match.
type LineupEntry struct {
	Year       int       `json:"year"`
	Date       time.Time `json:"date"`
	Round      string    `json:"round"`
	Team       string    `json:"team"`
	Players    []string  `json:"players"`
	ObservedAt time.Time `json:"observed_at"`
}

// NumTeamStats is the number of season totals on a team season row.
const NumTeamStats = 21

// TeamStatNames lists the team season totals in column order.
var TeamStatNames = [NumTeamStats]string{
	"kicks", "marks", "handballs", "disposals", "goals", "behinds", "hit_outs",
	"tackles", "rebound_50s", "inside_50s", "clearances", "clangers",
	"frees_for", "brownlow_votes", "contested_possessions",
	"uncontested_possessions", "contested_marks", "marks_inside_50",
	"one_percenters", "bounces", "goal_assists",
}

// TeamSeasonRow is one team's season totals.
type TeamSeasonRow struct {
	Year       int                   `json:"year"`
	Team       string                `json:"team"`
	Totals     [NumTeamStats]float64 `json:"totals"`
	ObservedAt time.Time             `json:"observed_at"`
}
