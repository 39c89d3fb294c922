package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// MatchInfo is the metadata printed alongside a match result.
type MatchInfo struct {
	Round      string
	Venue      string
	Date       time.Time
	RawDate    string
	Attendance record.Attendance
}

var (
	attendanceRe = regexp.MustCompile(`(?:Attendance|Att):\s*([\d,]+)`)
	gameInfoRe   = regexp.MustCompile(`^Round:\s*(.+?)\s+Venue:\s*(.+?)\s+Date:\s*(.+?)(?:\s*\(([^)]*)\))?(?:\s+Attendance:\s*([\d,]+))?$`)
)

// ParseSeasonInfo parses the info cell of a season results table, for example
// "Sat, 24-Apr-2021 2:10pm (2:10pm) Att: 7,000 Venue: Marvel".
//
// Attendance is read from an "Att:" or "Attendance:" marker and is the
// unknown sentinel when neither is present. A date that cannot be parsed
// leaves RawDate set and returns a *FieldError alongside the partially filled
// info.
func ParseSeasonInfo(text string) (MatchInfo, error) {
	s := collapse(text)
	info := MatchInfo{Attendance: record.UnknownAttendance()}

	if i := strings.Index(s, "Venue:"); i >= 0 {
		info.Venue = strings.TrimSpace(s[i+len("Venue:"):])
		s = strings.TrimSpace(s[:i])
	}
	if m := attendanceRe.FindStringSubmatch(s); m != nil {
		if a, err := record.ParseAttendance(m[1]); err == nil {
			info.Attendance = a
		}
		s = strings.TrimSpace(strings.Replace(s, m[0], "", 1))
	}
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	info.RawDate = s
	date, err := ParseDate(s)
	if err != nil {
		return info, err
	}
	info.Date = date
	info.RawDate = ""
	return info, nil
}

// ParseGameInfo parses the header line of a game detail page, for example
// "Round: 5 Venue: M.C.G. Date: Sat, 24-Apr-2021 2:10 PM (1:10 PM) Attendance: 50123".
func ParseGameInfo(text string) (MatchInfo, error) {
	s := collapse(text)
	info := MatchInfo{Attendance: record.UnknownAttendance()}

	m := gameInfoRe.FindStringSubmatch(s)
	if m == nil {
		info.RawDate = s
		return info, &FieldError{Field: "game info", Value: text}
	}
	info.Round = m[1]
	info.Venue = m[2]
	if m[5] != "" {
		if a, err := record.ParseAttendance(m[5]); err == nil {
			info.Attendance = a
		}
	}

	date, err := ParseDate(m[3])
	if err != nil {
		info.RawDate = m[3]
		return info, err
	}
	info.Date = date
	return info, nil
}
