// Package aggregate derives summary statistics from player performance rows.
//
// Nothing here is persisted: every figure is recomputed from the stored
// performance history on demand. Yearly aggregates are min, max and mean per
// statistic over a season's rows. All-time aggregates take the min of the
// yearly minimums, the max of the yearly maximums and the mean of the yearly
// means. The last is an average of averages, kept for compatibility with
// previously published figures rather than a mean over every row.
package aggregate
