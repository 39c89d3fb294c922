package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

func TestAccumulatorFlush(t *testing.T) {
	store, _ := newStore(t)
	m := merge.New(record.Lineups, store)
	date := time.Date(2021, 4, 24, 19, 25, 0, 0, time.UTC)

	acc := NewAccumulator[record.LineupEntry]()
	acc.Add("col", record.LineupEntry{Year: 2021, Date: date, Round: "6", Team: "Collingwood", Players: []string{"Scott Pendlebury"}})
	acc.Add("car",
		record.LineupEntry{Year: 2021, Date: date, Round: "6", Team: "Carlton", Players: []string{"Patrick Cripps"}},
		record.LineupEntry{Year: 2021, Date: date.AddDate(0, 0, 7), Round: "7", Team: "Carlton", Players: []string{"Sam Docherty"}},
	)
	if acc.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", acc.Len())
	}

	var reported []string
	err := acc.Flush(context.Background(), m, func(p storage.Partition, res *merge.Result, err error) {
		if err != nil {
			t.Errorf("flush %s: %v", p, err)
		}
		reported = append(reported, p.String())
	})
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(reported) != 2 || reported[0] != "lineups/car" || reported[1] != "lineups/col" {
		t.Errorf("reported = %v, want partitions in key order", reported)
	}
	if acc.Len() != 0 {
		t.Errorf("accumulator should be empty after flush, has %d", acc.Len())
	}

	carlton, err := merge.Read(context.Background(), store, record.Lineups, "car")
	if err != nil {
		t.Fatal(err)
	}
	if len(carlton) != 2 {
		t.Errorf("stored %d Carlton lineups, want 2", len(carlton))
	}
}

func TestAccumulatorFlushCancelled(t *testing.T) {
	store, _ := newStore(t)
	acc := NewAccumulator[record.LineupEntry]()
	acc.Add("car", record.LineupEntry{Year: 2021, Round: "1", Team: "Carlton"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := acc.Flush(ctx, merge.New(record.Lineups, store), func(storage.Partition, *merge.Result, error) {
		t.Error("nothing should be reported after cancellation")
	})
	if err == nil {
		t.Error("expected cancellation error")
	}
}
