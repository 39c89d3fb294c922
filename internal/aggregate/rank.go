package aggregate

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/merge"
	"github.com/pfrederiksen/afl-stats/internal/record"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

// Ranked is one player's place in a ranking.
type Ranked struct {
	PlayerID string       `json:"player_id"`
	Score    float64      `json:"score"`
	Games    int          `json:"games"`
	Totals   record.Stats `json:"-"`
}

// RankOptions controls Rank.
type RankOptions struct {
	Top         int // 0 returns every player
	Concurrency int // players scored at once, defaults to 8
	Backend     Backend
}

// Rank scores every player with stored performances and returns them ordered
// by score, then games played, both descending. Unreadable partitions are
// logged and left out.
func Rank(ctx context.Context, store storage.Store, w Weights, opts RankOptions) ([]Ranked, error) {
	if opts.Backend == nil {
		opts.Backend = Sequential{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	parts, err := store.List(ctx, record.EntityPerformances)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		ranked = make([]Ranked, 0, len(parts))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, p := range parts {
		g.Go(func() error {
			rows, err := merge.Read(ctx, store, record.Performances, p.Key)
			if err != nil {
				logger.Warn("Skipping unreadable performance partition", logger.Fields{
					"partition": p.String(),
					"error":     err.Error(),
				})
				return nil
			}
			if len(rows) == 0 {
				return nil
			}
			totals, err := opts.Backend.Totals(ctx, rows)
			if err != nil {
				return err
			}
			mu.Lock()
			ranked = append(ranked, Ranked{
				PlayerID: rows[0].PlayerID,
				Score:    w.Apply(totals),
				Games:    len(rows),
				Totals:   totals,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortRanked(ranked)
	if opts.Top > 0 && len(ranked) > opts.Top {
		ranked = ranked[:opts.Top]
	}
	return ranked, nil
}

// SortRanked orders by score, then games, descending; ties fall back to
// player ID so output is stable.
func SortRanked(ranked []Ranked) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Games != ranked[j].Games {
			return ranked[i].Games > ranked[j].Games
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
}
