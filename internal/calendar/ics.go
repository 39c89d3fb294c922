// Package calendar renders stored matches as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// MatchDuration is the length given to each calendar entry.
const MatchDuration = 3 * time.Hour

// GenerateICS generates an iCalendar (.ics) document with one event per
// match. Matches without a parsed date are left out.
func GenerateICS(matches []record.MatchRecord, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//afl-stats//afl-stats//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, m := range matches {
		if m.Date.IsZero() {
			continue
		}
		writeEvent(&ics, m, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, m record.MatchRecord, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	// UID is the key digest, stable across runs.
	fmt.Fprintf(ics, "UID:%s@afl-stats\r\n", record.Digest(record.MatchKey(m)))
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(m.Date))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(m.Date.Add(MatchDuration)))

	summary := fmt.Sprintf("%s v %s (%s)", m.HomeTeam, m.AwayTeam, roundLabel(m.Round))
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(summary))

	first, second := side(m.HomeTeam, m.Home), side(m.AwayTeam, m.Away)
	verb := "d."
	switch m.Winner {
	case record.Draw:
		verb = "drew with"
	case m.AwayTeam:
		first, second = second, first
	}
	description := fmt.Sprintf("%s %s %s", first, verb, second)
	if m.Attendance.Known {
		description += fmt.Sprintf("\nAttendance: %s", m.Attendance)
	}
	fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(description))

	if m.Venue != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(m.Venue))
	}
	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// side renders "Carlton 13.11 (89)".
func side(team string, s record.Side) string {
	return fmt.Sprintf("%s %d.%d (%d)", team, s.TotalGoals(), s.TotalBehinds(), s.Score())
}

func roundLabel(round string) string {
	if round != "" && round[0] >= '0' && round[0] <= '9' {
		return "Round " + round
	}
	return round
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
