// Package normalize converts raw table cell text into typed values.
//
// It covers the free-text match information cells (date, attendance, venue,
// round), team name resolution against a closed vocabulary of team codes,
// player name formats, finals round labels and the tolerant numeric parsing
// used for statistics cells. Failures are reported as typed errors so the
// caller can keep the raw text and flag the record rather than drop it.
package normalize
