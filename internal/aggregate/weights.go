package aggregate

import (
	"fmt"
	"sort"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// Weights maps a statistic name to its contribution per unit to the value
// score. Statistics without an entry contribute nothing.
type Weights map[string]float64

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		"goals":                 8,
		"behinds":               1,
		"goal_assist":           3,
		"contested_marks":       6,
		"contested_possessions": 4.5,
		"marks":                 2,
		"kicks":                 4,
		"clangers":              -4,
		"free_kicks_for":        4,
		"free_kicks_against":    -4,
		"tackles":               4,
		"one_percenters":        2,
		"clearances":            4,
		"brownlow_votes":        50,
		"disposals":             5,
	}
}

// Validate rejects weights for statistics that do not exist.
func (w Weights) Validate() error {
	var unknown []string
	for name := range w {
		if record.StatIndex(name) < 0 {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown statistics in weights: %v", unknown)
	}
	return nil
}

// Merge returns a copy of w with overrides applied on top.
func (w Weights) Merge(overrides Weights) Weights {
	out := make(Weights, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Apply scores a set of per-statistic totals.
func (w Weights) Apply(totals record.Stats) float64 {
	var score float64
	for i, name := range record.StatNames {
		score += totals[i] * w[name]
	}
	return score
}
