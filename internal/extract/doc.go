// Package extract locates tables in HTML documents and turns their rows into
// typed records.
//
// The generic part (Tables, Rows, TableRows and the predicates) walks a
// parsed document lazily and yields raw cell text. The page parsers built on
// top of it (season results, game details, player careers, team totals and
// index pages) combine the score decoder and the normalizer to produce
// records. A bad row is reported as a Problem and skipped; it never aborts
// the rest of the document.
package extract
