package aggregate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// Backend sums statistics over many rows. Implementations must return the
// same totals for the same input.
type Backend interface {
	Totals(ctx context.Context, rows []record.PlayerPerformanceRow) (record.Stats, error)
}

// Sequential sums rows in a single loop.
type Sequential struct{}

// Totals implements Backend.
func (Sequential) Totals(ctx context.Context, rows []record.PlayerPerformanceRow) (record.Stats, error) {
	return sum(rows), ctx.Err()
}

// Parallel splits rows into chunks summed on separate goroutines.
type Parallel struct {
	Workers   int // defaults to GOMAXPROCS
	ChunkSize int // defaults to 1024
}

// Totals implements Backend.
func (p Parallel) Totals(ctx context.Context, rows []record.PlayerPerformanceRow) (record.Stats, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := p.ChunkSize
	if chunk <= 0 {
		chunk = 1024
	}

	n := (len(rows) + chunk - 1) / chunk
	partials := make([]record.Stats, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		lo, hi := i*chunk, min((i+1)*chunk, len(rows))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = sum(rows[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return record.Stats{}, err
	}

	var total record.Stats
	for _, part := range partials {
		for j := range total {
			total[j] += part[j]
		}
	}
	return total, nil
}

func sum(rows []record.PlayerPerformanceRow) record.Stats {
	var total record.Stats
	for _, r := range rows {
		for j, v := range r.Stats {
			total[j] += v
		}
	}
	return total
}

// Score sums each statistic over rows and applies the weights.
func Score(ctx context.Context, b Backend, rows []record.PlayerPerformanceRow, w Weights) (float64, error) {
	totals, err := b.Totals(ctx, rows)
	if err != nil {
		return 0, err
	}
	return w.Apply(totals), nil
}
