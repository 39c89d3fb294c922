package record

import (
	"sort"
	"time"
)

// ChangeType describes how a stored record was affected by a merge.
type ChangeType string

const (
	ChangeInserted ChangeType = "inserted"
	ChangeReplaced ChangeType = "replaced"
)

// Change records a single column that differs between the stored and the
// incoming version of a record.
type Change struct {
	Key        string     `json:"key"`
	Digest     string     `json:"digest"`
	ChangeType ChangeType `json:"change_type"`
	Column     string     `json:"column,omitempty"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
}

// Compare returns one Change per column that differs between two encoded
// rows. The observed_at column is ignored since it changes on every run.
func Compare(key string, columns, previous, current []string, now time.Time) []*Change {
	changes := make([]*Change, 0)
	digest := Digest(key)
	for i, col := range columns {
		if col == ObservedColumn || i >= len(previous) || i >= len(current) {
			continue
		}
		if previous[i] != current[i] {
			changes = append(changes, &Change{
				Key:        key,
				Digest:     digest,
				ChangeType: ChangeReplaced,
				Column:     col,
				OldValue:   previous[i],
				NewValue:   current[i],
				DetectedAt: now,
			})
		}
	}
	return changes
}

// Inserted returns the change entry for a record with no stored version.
func Inserted(key string, now time.Time) *Change {
	return &Change{Key: key, Digest: Digest(key), ChangeType: ChangeInserted, DetectedAt: now}
}

// SortChanges orders changes by key, then column, for stable output.
func SortChanges(changes []*Change) {
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Key != changes[j].Key {
			return changes[i].Key < changes[j].Key
		}
		return changes[i].Column < changes[j].Column
	})
}
