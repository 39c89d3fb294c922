package record

import (
	"crypto/sha1"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Digest returns a short deterministic identifier for a dedup key, used in
// logs and change reports where the full key is unwieldy.
func Digest(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func joinKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = normalizeKeyPart(p)
	}
	return strings.Join(parts, "|")
}

// teamKeyPart prefers the resolved team code and falls back to the raw name.
func teamKeyPart(code, name string) string {
	if code != "" {
		return code
	}
	return name
}

// MatchKey identifies a match by season, round and the two teams.
func MatchKey(m MatchRecord) string {
	return joinKey(
		strconv.Itoa(m.Year),
		m.Round,
		teamKeyPart(m.HomeCode, m.HomeTeam),
		teamKeyPart(m.AwayCode, m.AwayTeam),
	)
}

// PlayerID builds the player identity from last name, first name and birth
// date. It doubles as the partition key for the player's records.
func PlayerID(last, first string, born time.Time) string {
	name := strings.ToLower(last + "_" + first)
	name = strings.Join(strings.Fields(name), "-")
	return name + "_" + born.Format("02012006")
}

// PerformanceKey identifies one player's line in one game.
func PerformanceKey(r PlayerPerformanceRow) string {
	return joinKey(r.PlayerID, r.Team, strconv.Itoa(r.Year), r.Round, r.Opponent)
}

// ProfileKey identifies a player profile.
func ProfileKey(p PlayerProfile) string {
	return p.ID()
}

// LineupKey identifies one team's lineup for one match.
func LineupKey(l LineupEntry) string {
	return joinKey(strconv.Itoa(l.Year), l.Date.Format(dateTimeLayout), l.Round, l.Team)
}

// TeamSeasonKey identifies one team's totals for one season.
func TeamSeasonKey(t TeamSeasonRow) string {
	return joinKey(strconv.Itoa(t.Year), t.Team)
}
