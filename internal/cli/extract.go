package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/afl-stats/internal/filter"
	"github.com/pfrederiksen/afl-stats/internal/pipeline"
)

// seasonFlags selects seasons either with --from/--to or with a --years range.
type seasonFlags struct {
	from  int
	to    int
	years string
}

func (s *seasonFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.from, "from", 0, "First season")
	cmd.Flags().IntVar(&s.to, "to", 0, "Last season (default: current season)")
	cmd.Flags().StringVar(&s.years, "years", "", "Season range instead of --from/--to (e.g. 2021, 2019-2021, 2019-)")
}

// bounds returns the inclusive season range; zero leaves an end open.
func (s *seasonFlags) bounds() (from, to int, err error) {
	if s.years != "" {
		return filter.ParseYearRange(s.years)
	}
	from, to = s.from, s.to
	if from != 0 && from < filter.FirstSeason {
		return 0, 0, fmt.Errorf("year %d is before the first season (%d)", from, filter.FirstSeason)
	}
	if from != 0 && to != 0 && from > to {
		return 0, 0, fmt.Errorf("--from must not be after --to")
	}
	return from, to, nil
}

// seasons expands the flags for extraction. With no flags it is the
// current season only.
func (s *seasonFlags) seasons() ([]int, error) {
	from, to, err := s.bounds()
	if err != nil {
		return nil, err
	}
	if from == 0 && to == 0 {
		return []int{time.Now().Year()}, nil
	}
	return filter.Seasons(from, to), nil
}

func newMatchesCmd() *cobra.Command {
	var sf seasonFlags
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Extract match results from season pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd, func(r *pipeline.Runner) ([]pipeline.Job, error) {
				years, err := sf.seasons()
				if err != nil {
					return nil, err
				}
				return r.SeasonJobs(years, false), nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func newGamesCmd() *cobra.Command {
	var sf seasonFlags
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Extract match results and the linked game pages with lineups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd, func(r *pipeline.Runner) ([]pipeline.Job, error) {
				years, err := sf.seasons()
				if err != nil {
					return nil, err
				}
				return r.SeasonJobs(years, true), nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func newPlayersCmd() *cobra.Command {
	var sf seasonFlags
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Extract profiles and game logs of players who appeared in the given seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd, func(r *pipeline.Runner) ([]pipeline.Job, error) {
				years, err := sf.seasons()
				if err != nil {
					return nil, err
				}
				return r.SeasonPlayerJobs(years), nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func newAllPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all-players",
		Short: "Extract every player listed in the alphabetical player index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd, func(r *pipeline.Runner) ([]pipeline.Job, error) {
				return r.PlayerIndexJobs(), nil
			})
		},
	}
}

func newTeamsCmd() *cobra.Command {
	var sf seasonFlags
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Extract team season totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd, func(r *pipeline.Runner) ([]pipeline.Job, error) {
				years, err := sf.seasons()
				if err != nil {
					return nil, err
				}
				return r.TeamTotalsJobs(years), nil
			})
		},
	}
	sf.register(cmd)
	return cmd
}
