// Package storage persists record partitions.
//
// A partition is the unit of persistence: every write replaces a whole
// partition atomically, so a reader sees either the previous contents or the
// new ones, never a mix. Three backends implement Store: CSV files on disk
// (the default, one file per partition under <data_dir>/<entity>/), SQLite
// and PostgreSQL. The default data location is ~/.local/share/afl-stats/.
package storage
