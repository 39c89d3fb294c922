package record

import (
	"testing"
	"time"
)

func TestCompare(t *testing.T) {
	now := time.Now().UTC()
	previous := sampleMatch()
	current := previous
	current.Attendance = KnownAttendance(7250)
	current.ObservedAt = previous.ObservedAt.Add(time.Hour)

	changes := Compare(MatchKey(current), MatchColumns, Matches.Encode(previous), Matches.Encode(current), now)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %+v", len(changes), changes)
	}

	c := changes[0]
	if c.Column != "attendance" || c.OldValue != "7000" || c.NewValue != "7250" {
		t.Errorf("unexpected change %+v", c)
	}
	if c.ChangeType != ChangeReplaced {
		t.Errorf("change type = %s, want %s", c.ChangeType, ChangeReplaced)
	}
	if c.Digest != Digest(c.Key) {
		t.Error("digest should be derived from the key")
	}
}

func TestCompareIdentical(t *testing.T) {
	row := Matches.Encode(sampleMatch())
	if changes := Compare("k", MatchColumns, row, row, time.Now()); len(changes) != 0 {
		t.Errorf("expected no changes, got %d", len(changes))
	}
}

func TestSortChanges(t *testing.T) {
	changes := []*Change{
		{Key: "b", Column: "venue"},
		{Key: "a", Column: "venue"},
		{Key: "a", Column: "attendance"},
	}
	SortChanges(changes)
	if changes[0].Key != "a" || changes[0].Column != "attendance" || changes[2].Key != "b" {
		t.Errorf("unexpected order: %+v %+v %+v", changes[0], changes[1], changes[2])
	}
}
