// Package merge folds newly extracted records into stored partitions.
//
// Each partition moves through NotLoaded, Loaded, Merging and Persisted.
// Loading reads the stored rows and builds a key index; folding replaces
// records whose key is already present and appends the rest; persisting
// rewrites the whole partition. Merges into the same partition are
// serialized by a per-partition lock, while different partitions merge
// concurrently. The key index lives only for the duration of one merge.
package merge
