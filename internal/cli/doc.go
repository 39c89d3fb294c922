// Package cli implements the command-line interface for afl-stats.
//
// The cli package provides the Cobra-based CLI with extraction commands
// (matches, games, players, all-players, teams), read-only queries over the
// record store (list, stats, rank) and config management. It coordinates the
// source, pipeline, storage and aggregate packages and renders results as
// text tables or JSON.
package cli
