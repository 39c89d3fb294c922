// Package score decodes cumulative "goals.behinds" quarter-by-quarter score
// cells into per-quarter scoring.
package score

import (
	"fmt"
	"strconv"
	"strings"
)

// Quarters is the number of scoring periods in a match.
const Quarters = 4

// ParseError reports a cell that is not a "goals.behinds" pair.
type ParseError struct {
	Cell   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed score cell %q: %s", e.Cell, e.Reason)
}

// ValidationError reports a cumulative score that went backwards.
type ValidationError struct {
	Quarter  int // 1-based
	Field    string
	Previous int
	Current  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cumulative %s decreased in quarter %d (%d to %d)", e.Field, e.Quarter, e.Previous, e.Current)
}

// ParsePair parses "13.11" into goals and behinds. A trailing points
// component ("13.11.89") is accepted when it equals 6*goals + behinds.
func ParsePair(cell string) (goals, behinds int, err error) {
	s := strings.TrimSpace(cell)
	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, &ParseError{Cell: cell, Reason: "expected goals.behinds"}
	}
	goals, err = strconv.Atoi(parts[0])
	if err != nil || goals < 0 {
		return 0, 0, &ParseError{Cell: cell, Reason: "goals is not a non-negative integer"}
	}
	behinds, err = strconv.Atoi(parts[1])
	if err != nil || behinds < 0 {
		return 0, 0, &ParseError{Cell: cell, Reason: "behinds is not a non-negative integer"}
	}
	if len(parts) == 3 {
		points, err := strconv.Atoi(parts[2])
		if err != nil || points != Points(goals, behinds) {
			return 0, 0, &ParseError{Cell: cell, Reason: "points do not match goals.behinds"}
		}
	}
	return goals, behinds, nil
}

// Decode turns four cumulative score cells into per-quarter goals and
// behinds. The first quarter is taken as-is and each later quarter is the
// difference from the previous cumulative value. A decrease is reported as a
// ValidationError and never clamped.
func Decode(cells []string) (goals, behinds [Quarters]int, err error) {
	if len(cells) != Quarters {
		return goals, behinds, &ParseError{
			Cell:   strings.Join(cells, " "),
			Reason: fmt.Sprintf("expected %d cumulative cells, got %d", Quarters, len(cells)),
		}
	}

	var prevGoals, prevBehinds int
	for q, cell := range cells {
		g, b, err := ParsePair(cell)
		if err != nil {
			return goals, behinds, err
		}
		if g < prevGoals {
			return goals, behinds, &ValidationError{Quarter: q + 1, Field: "goals", Previous: prevGoals, Current: g}
		}
		if b < prevBehinds {
			return goals, behinds, &ValidationError{Quarter: q + 1, Field: "behinds", Previous: prevBehinds, Current: b}
		}
		goals[q] = g - prevGoals
		behinds[q] = b - prevBehinds
		prevGoals, prevBehinds = g, b
	}
	return goals, behinds, nil
}

// Points converts goals and behinds to a points total.
func Points(goals, behinds int) int {
	return goals*6 + behinds
}
