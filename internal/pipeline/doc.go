// Package pipeline drives extraction runs: it fetches documents with a
// bounded worker pool, extracts and normalizes their records, and merges them
// into the record store.
//
// Fetching is the only blocking step. Everything after it runs on the worker
// that fetched the document. Documents discovered while processing (game
// pages linked from a season, player pages linked from an index) are run as
// the next wave of jobs. A failure to fetch or parse one document never stops
// the run; a failure to persist a partition is reported in the Summary.
package pipeline
