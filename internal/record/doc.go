// Package record defines the typed records produced by the extraction pipeline.
//
// Every entity (matches, player profiles, player performance rows, team
// lineups and team season totals) has a fixed ordered column list, a codec
// that turns a record into a flat row of strings and back, and a dedup key
// derived from its natural identity. The same inputs always produce the same
// key, which lets repeated runs replace records instead of duplicating them.
package record
