package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// AllTime is the partition label of all-time aggregates.
const AllTime = "all-time"

// Stat summarizes one statistic over one partition.
type Stat struct {
	Partition string  `json:"partition"`
	Name      string  `json:"stat_name"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	Samples   int     `json:"sample_count"`
}

// Set holds one Stat per statistic name.
type Set map[string]Stat

// Yearly groups rows by season and summarizes every statistic. Missing values
// were already zero-filled at extraction, so each row counts for every stat.
func Yearly(rows []record.PlayerPerformanceRow) map[int]Set {
	byYear := make(map[int][]record.PlayerPerformanceRow)
	for _, r := range rows {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	out := make(map[int]Set, len(byYear))
	for year, yearRows := range byYear {
		set := make(Set, record.NumStats)
		for i, name := range record.StatNames {
			s := Stat{
				Partition: fmt.Sprint(year),
				Name:      name,
				Min:       math.Inf(1),
				Max:       math.Inf(-1),
				Samples:   len(yearRows),
			}
			var sum float64
			for _, r := range yearRows {
				v := r.Stats[i]
				s.Min = math.Min(s.Min, v)
				s.Max = math.Max(s.Max, v)
				sum += v
			}
			s.Mean = sum / float64(len(yearRows))
			set[name] = s
		}
		out[year] = set
	}
	return out
}

// Combine builds the all-time aggregate from yearly ones: min of minimums,
// max of maximums and the unweighted mean of yearly means.
func Combine(yearly map[int]Set) Set {
	out := make(Set, record.NumStats)
	if len(yearly) == 0 {
		return out
	}
	for _, name := range record.StatNames {
		s := Stat{Partition: AllTime, Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
		var meanSum float64
		for _, set := range yearly {
			y := set[name]
			s.Min = math.Min(s.Min, y.Min)
			s.Max = math.Max(s.Max, y.Max)
			meanSum += y.Mean
			s.Samples += y.Samples
		}
		s.Mean = meanSum / float64(len(yearly))
		out[name] = s
	}
	return out
}

// Years returns the keys of yearly in ascending order.
func Years(yearly map[int]Set) []int {
	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Probability returns the share of rows whose stat is at least threshold.
// It is zero when there are no rows.
func Probability(rows []record.PlayerPerformanceRow, stat string, threshold float64) (float64, error) {
	i := record.StatIndex(stat)
	if i < 0 {
		return 0, fmt.Errorf("unknown statistic %q", stat)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	hits := 0
	for _, r := range rows {
		if r.Stats[i] >= threshold {
			hits++
		}
	}
	return float64(hits) / float64(len(rows)), nil
}

// YearProbability is Probability restricted to one season.
func YearProbability(rows []record.PlayerPerformanceRow, year int, stat string, threshold float64) (float64, error) {
	var yearRows []record.PlayerPerformanceRow
	for _, r := range rows {
		if r.Year == year {
			yearRows = append(yearRows, r)
		}
	}
	return Probability(yearRows, stat, threshold)
}
